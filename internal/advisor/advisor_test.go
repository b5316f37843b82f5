package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/pkg/model"
)

func TestNewAdvisor(t *testing.T) {
	a := NewAdvisor()

	assert.NotNil(t, a)
	assert.NotEmpty(t, a.rules)
}

func TestNewAdvisorWithRules(t *testing.T) {
	a := NewAdvisorWithRules([]Rule{{Type: "test", Name: "test_rule"}})

	require.Len(t, a.rules, 1)
	assert.Equal(t, "test_rule", a.rules[0].Name)
}

func TestAdvisor_Advise_WindowSaturation(t *testing.T) {
	snap := &model.WindowSnapshot{
		Engine:     model.EngineDIU,
		WindowSize: 10,
		Threshold:  1,
		Closed: []model.ClosedRecord{
			{Items: []string{"a"}, Support: 10},
			{Items: []string{"b"}, Support: 9},
			{Items: []string{"c"}, Support: 2},
		},
	}

	suggestions := NewAdvisor().Advise(NewRuleContext(snap))

	var found bool
	for _, s := range suggestions {
		if s.Severity == "warning" {
			found = true
		}
	}
	assert.True(t, found, "expected a window-saturation suggestion")
}

func TestAdvisor_Advise_ThresholdInfrequency(t *testing.T) {
	closed := make([]model.ClosedRecord, 0, 10)
	for _, item := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		closed = append(closed, model.ClosedRecord{Items: []string{item}, Support: 1})
	}
	closed = append(closed, model.ClosedRecord{Items: []string{"z"}, Support: 10})
	snap := &model.WindowSnapshot{
		Engine:    model.EngineMFCI,
		Threshold: 5,
		Closed:    closed,
	}

	suggestions := NewAdvisor().Advise(NewRuleContext(snap))

	var found bool
	for _, s := range suggestions {
		if s.Message != "" && s.Engine == model.EngineMFCI {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdvisor_Advise_NearThresholdDrop(t *testing.T) {
	snap := &model.WindowSnapshot{
		Engine:    model.EngineStreamFCI,
		Threshold: 3,
		Closed: []model.ClosedRecord{
			{Items: []string{"x", "y"}, Support: 3},
			{Items: []string{"z"}, Support: 8},
		},
	}

	suggestions := NewAdvisor().Advise(NewRuleContext(snap))

	var found bool
	for _, s := range suggestions {
		if len(s.Items) == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected a near-threshold-drop suggestion naming the itemset")
}

func TestAdvisor_Advise_NoSuggestionsOnHealthySnapshot(t *testing.T) {
	snap := &model.WindowSnapshot{
		Engine:     model.EngineDIU,
		WindowSize: 1000,
		Threshold:  2,
		Closed: []model.ClosedRecord{
			{Items: []string{"a"}, Support: 500},
			{Items: []string{"b"}, Support: 400},
		},
	}

	suggestions := NewAdvisor().Advise(NewRuleContext(snap))

	assert.Empty(t, suggestions)
}

func TestAdvisor_Advise_EmptySnapshot(t *testing.T) {
	snap := &model.WindowSnapshot{Engine: model.EngineDIU}

	suggestions := NewAdvisor().Advise(NewRuleContext(snap))

	assert.Empty(t, suggestions)
}
