package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/pkg/model"
)

func TestTopItemsetsCalculator_Calculate_Basic(t *testing.T) {
	closed := []model.ClosedRecord{
		{Items: []string{"a"}, Support: 10},
		{Items: []string{"a", "b"}, Support: 30},
		{Items: []string{"c"}, Support: 5},
		{Items: []string{"a", "b", "c"}, Support: 2},
	}

	calc := NewTopItemsetsCalculator(WithTopN(2))
	result := calc.Calculate(closed)

	require.NotNil(t, result)
	assert.Equal(t, 4, result.TotalClosed)
	assert.EqualValues(t, 47, result.TotalSupport)
	require.Len(t, result.Top, 2)
	assert.Equal(t, 30, result.Top[0].Support)
	assert.Equal(t, 10, result.Top[1].Support)
}

func TestTopItemsetsCalculator_Calculate_TiesBrokenByLength(t *testing.T) {
	closed := []model.ClosedRecord{
		{Items: []string{"a"}, Support: 10},
		{Items: []string{"a", "b"}, Support: 10},
	}

	result := NewTopItemsetsCalculator().Calculate(closed)

	require.Len(t, result.Top, 2)
	assert.Equal(t, []string{"a", "b"}, result.Top[0].Items)
}

func TestTopItemsetsCalculator_Calculate_Empty(t *testing.T) {
	result := NewTopItemsetsCalculator().Calculate(nil)

	require.NotNil(t, result)
	assert.Empty(t, result.Top)
	assert.Equal(t, 0, result.TotalClosed)
}

func TestTopItemsetsCalculator_Calculate_TopNExceedsSize(t *testing.T) {
	closed := []model.ClosedRecord{{Items: []string{"a"}, Support: 1}}

	result := NewTopItemsetsCalculator(WithTopN(50)).Calculate(closed)

	assert.Len(t, result.Top, 1)
}
