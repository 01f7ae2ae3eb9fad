package scc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/scc"
)

func TestComputeOrdersLeavesBeforeDependents(t *testing.T) {
	graph := map[string][]string{
		"main": {"helper"},
		"helper": {"leaf"},
	}
	groups := scc.Compute(graph)

	pos := make(map[string]int)
	for i, g := range groups {
		for _, item := range g.Items {
			pos[item] = i
		}
	}
	require.Less(t, pos["leaf"], pos["helper"])
	require.Less(t, pos["helper"], pos["main"])
}

func TestComputeGroupsMutualRecursion(t *testing.T) {
	graph := map[string][]string{
		"isEven": {"isOdd"},
		"isOdd":  {"isEven"},
		"caller": {"isEven"},
	}
	groups := scc.Compute(graph)

	var recursiveGroup *scc.DependencyGroup[string]
	for i := range groups {
		if len(groups[i].Items) == 2 {
			recursiveGroup = &groups[i]
		}
	}
	require.NotNil(t, recursiveGroup)
	require.ElementsMatch(t, []string{"isEven", "isOdd"}, recursiveGroup.Items)
}

func TestComputeHandlesSelfRecursion(t *testing.T) {
	graph := map[string][]string{
		"factorial": {"factorial"},
	}
	groups := scc.Compute(graph)
	require.Len(t, groups, 1)
	require.Equal(t, []string{"factorial"}, groups[0].Items)
}

func TestComputeHandlesDisconnectedItems(t *testing.T) {
	graph := map[string][]string{
		"a": nil,
		"b": nil,
	}
	groups := scc.Compute(graph)
	require.Len(t, groups, 2)
}
