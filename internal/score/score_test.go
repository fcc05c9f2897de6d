package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqc-securechain/qrisk/internal/types"
)

func TestScore_DefaultPolicy(t *testing.T) {
	p := Default()
	cases := []struct {
		name      string
		ecrecover int
		keys      int
		want      int
	}{
		{"clean", 0, 0, 0},
		{"one of each", 1, 1, 60},
		{"one call", 1, 0, 50},
		{"two calls", 2, 0, 100},
		{"three ecrecover clamps at ceiling", 3, 0, 100},
		{"keys only", 0, 4, 40},
		{"ten keys", 0, 10, 100},
		{"many keys clamp", 0, 25, 100},
		{"mixed clamp", 1, 6, 100},
		{"huge", math.MaxInt / 2, math.MaxInt / 2, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Score(types.Counts{types.KindEcrecover: tc.ecrecover, types.KindKeyExposure: tc.keys})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScore_MonotoneAndBounded(t *testing.T) {
	p := Default()
	for e := 0; e < 5; e++ {
		prev := -1
		for k := 0; k < 15; k++ {
			s := p.Score(types.Counts{types.KindEcrecover: e, types.KindKeyExposure: k})
			assert.GreaterOrEqual(t, s, prev)
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
			assert.Equal(t, min(100, 50*e+10*k), s)
			prev = s
		}
	}
}

func TestScore_UnknownKindsAndOverrides(t *testing.T) {
	p := Default()
	assert.Equal(t, 0, p.Score(types.Counts{"CUSTOM": 3}))

	p = p.With(map[types.Kind]int{"CUSTOM": 5, types.KindKeyExposure: 20})
	assert.Equal(t, 15+20, p.Score(types.Counts{"CUSTOM": 3, types.KindKeyExposure: 1}))
	// the receiver is not mutated
	assert.Equal(t, 10, Default().Weights[types.KindKeyExposure])

	low := Policy{Weights: DefaultWeights(), Ceiling: 30}
	assert.Equal(t, 30, low.Score(types.Counts{types.KindEcrecover: 1}))
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, Default().Validate())
	assert.Error(t, Policy{Weights: DefaultWeights(), Ceiling: 101}.Validate())
	assert.Error(t, Policy{Weights: DefaultWeights(), Ceiling: -1}.Validate())
	assert.ErrorContains(t, Default().With(map[types.Kind]int{types.KindEcrecover: -5}).Validate(), "ECRECOVER_USAGE")
}
