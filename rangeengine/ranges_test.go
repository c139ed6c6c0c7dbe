package rangeengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLessOrdersLongestRangesFirst(t *testing.T) {
	ranges := []Range{{Start: 0, End: 2}, {Start: 10, End: 20}, {Start: 5, End: 9}}
	sortRangesBy(ranges, nil)
	assert.Equal(t, []Range{{10, 20}, {5, 9}, {0, 2}}, ranges)
}

func TestDefaultLessBreaksTiesByStartDescending(t *testing.T) {
	ranges := []Range{{Start: 0, End: 4}, {Start: 10, End: 14}}
	sortRangesBy(ranges, nil)
	assert.Equal(t, []Range{{10, 14}, {0, 4}}, ranges)
}

func TestNormalizeRejectsEmptyOrInvertedRanges(t *testing.T) {
	_, err := normalize([]Range{{Start: 5, End: 5}}, nil)
	assert.Error(t, err)

	_, err = normalize([]Range{{Start: 9, End: 3}}, nil)
	assert.Error(t, err)
}

func TestNormalizeDropsDuplicateRanges(t *testing.T) {
	out, err := normalize([]Range{{0, 4}, {0, 4}, {8, 10}}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestByStartReordersWithoutMutatingInput(t *testing.T) {
	in := []Range{{10, 20}, {0, 4}}
	out := byStart(in)
	assert.Equal(t, []Range{{0, 4}, {10, 20}}, out)
	assert.Equal(t, []Range{{10, 20}, {0, 4}}, in, "byStart must not mutate its argument")
}
