package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOracleScoreStartsAtZeroForUnknownReducer(t *testing.T) {
	o := NewOracle()
	assert.Zero(t, o.Score("chunks"))
}

func TestOracleScoreTracksInterestingRate(t *testing.T) {
	o := NewOracle()
	o.Record("chunks", Judged)
	o.Record("chunks", Judged)
	o.Record("chunks", NotInteresting)

	assert.InDelta(t, 2.0/3.0, o.Score("chunks"), 1e-9)
}

func TestOracleTracksReducersIndependently(t *testing.T) {
	o := NewOracle()
	o.Record("chunks", Judged)
	o.Record("balanced", NotInteresting)
	o.Record("balanced", NotInteresting)

	assert.Equal(t, 1.0, o.Score("chunks"))
	assert.Zero(t, o.Score("balanced"))
}
