package lattice

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiminer/miner/pkg/itemset"
	"github.com/cfiminer/miner/pkg/model"
)

func constSupport(m map[string]int) SupportFunc {
	return func(x itemset.Itemset[string]) int {
		return m[x.Key()]
	}
}

func TestBuild_NodesCoverAllClosedItemsets(t *testing.T) {
	a := itemset.New("a")
	ab := itemset.New("a", "b")
	closed := []itemset.Itemset[string]{ab, a}

	g := Build(model.EngineDIU, closed, constSupport(map[string]int{
		a.Key():  3,
		ab.Key(): 2,
	}))

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, model.EngineDIU, g.Engine)

	byID := make(map[string]model.LatticeNode)
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	require.Contains(t, byID, a.Key())
	require.Contains(t, byID, ab.Key())
	assert.Equal(t, 3, byID[a.Key()].Support)
	assert.Equal(t, 2, byID[ab.Key()].Support)
}

func TestBuild_EdgeOnlyBetweenImmediateSubsetSuperset(t *testing.T) {
	a := itemset.New("a")
	ab := itemset.New("a", "b")
	abc := itemset.New("a", "b", "c")
	closed := []itemset.Itemset[string]{abc, ab, a}

	g := Build(model.EngineDIU, closed, constSupport(nil))

	require.Len(t, g.Edges, 2)
	edgeSet := make(map[[2]string]bool)
	for _, e := range g.Edges {
		edgeSet[[2]string{e.From, e.To}] = true
	}
	assert.True(t, edgeSet[[2]string{a.Key(), ab.Key()}])
	assert.True(t, edgeSet[[2]string{ab.Key(), abc.Key()}])
	assert.False(t, edgeSet[[2]string{a.Key(), abc.Key()}], "a->abc is not immediate: ab sits between them")
}

func TestBuild_NoEdgesBetweenIncomparableItemsets(t *testing.T) {
	a := itemset.New("a")
	b := itemset.New("b")

	g := Build(model.EngineMFCI, []itemset.Itemset[string]{a, b}, constSupport(nil))

	assert.Empty(t, g.Edges)
}

func TestJSONWriter_RoundTripsThroughCompactJSON(t *testing.T) {
	closed := []itemset.Itemset[string]{itemset.New("a", "b"), itemset.New("a")}
	g := Build(model.EngineStreamFCI, closed, constSupport(map[string]int{
		itemset.New("a").Key():      5,
		itemset.New("a", "b").Key(): 2,
	}))

	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(g, &buf))
	assert.Contains(t, buf.String(), `"engine":"streamfci"`)
	assert.Contains(t, buf.String(), `"items":["a"]`)
}
