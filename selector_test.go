package bgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullRangeResolvesToEveryIndex(t *testing.T) {
	sel := FullRange(4)
	idx, err := sel.resolve("test", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, idx)
}

func TestRangeSelectorOutOfBounds(t *testing.T) {
	sel := RangeSelector(2, 10)
	_, err := sel.resolve("test", 4)
	assert.Error(t, err)
}

func TestListSelectorDropsNotFoundSentinels(t *testing.T) {
	sel := ListSelector([]int{2, -1, 0, -1, 3})
	idx, err := sel.resolve("test", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 3}, idx)
}

func TestListSelectorOutOfBoundsIsAnError(t *testing.T) {
	sel := ListSelector([]int{0, 7})
	_, err := sel.resolve("test", 4)
	assert.Error(t, err)
}
