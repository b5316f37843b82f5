package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

func testSnapshot() *model.WindowSnapshot {
	return &model.WindowSnapshot{
		Engine:       model.EngineDIU,
		WindowSize:   100,
		Threshold:    2,
		StreamOffset: 42,
		Closed: []model.ClosedRecord{
			{Items: []string{"a"}, Support: 10},
			{Items: []string{"a", "b"}, Support: 4},
		},
	}
}

func TestRegistry_Get_DefaultsToText(t *testing.T) {
	r := NewRegistry()

	assert.IsType(t, &TextFormatter{}, r.Get("unknown"))
	assert.IsType(t, &JSONFormatter{}, r.Get(FormatJSON))
}

func TestTextFormatter_FormatSummary(t *testing.T) {
	f := &TextFormatter{}
	summary := f.FormatSummary(testSnapshot(), nil)

	require.NotNil(t, summary)
	assert.Equal(t, model.EngineDIU, summary["engine"])
	assert.Equal(t, 2, summary["closed_count"])
}

func TestJSONFormatter_FormatSummary(t *testing.T) {
	f := &JSONFormatter{}
	summary := f.FormatSummary(testSnapshot(), []model.MiningSuggestion{{Message: "hi"}})

	require.NotNil(t, summary)
	closed, ok := summary["closed"].([]model.ClosedRecord)
	require.True(t, ok)
	assert.Len(t, closed, 2)
}

func TestRegistry_Format_NoPanicOnNilSnapshot(t *testing.T) {
	r := NewRegistry()
	log := utils.NewDefaultLogger(utils.LevelError, nil)

	assert.NotPanics(t, func() {
		r.Format(FormatText, nil, nil, log)
		r.Format(FormatJSON, nil, nil, log)
	})
}
