// Package score converts per-kind finding counts into a bounded risk score.
package score

import (
	"fmt"
	"sort"

	"github.com/hqc-securechain/qrisk/internal/types"
)

// DefaultCeiling is the maximum risk score.
const DefaultCeiling = 100

// DefaultWeights is the stock weight table.
func DefaultWeights() map[types.Kind]int {
	return map[types.Kind]int{
		types.KindEcrecover:   50,
		types.KindKeyExposure: 10,
	}
}

// Policy is a linear weighted sum clamped to [0, Ceiling]. Kinds missing from
// Weights contribute nothing.
type Policy struct {
	Weights map[types.Kind]int
	Ceiling int
}

// Default returns the stock policy.
func Default() Policy {
	return Policy{Weights: DefaultWeights(), Ceiling: DefaultCeiling}
}

// With returns a copy of p with overrides applied on top of its weights.
func (p Policy) With(overrides map[types.Kind]int) Policy {
	w := make(map[types.Kind]int, len(p.Weights)+len(overrides))
	for k, v := range p.Weights {
		w[k] = v
	}
	for k, v := range overrides {
		w[k] = v
	}
	return Policy{Weights: w, Ceiling: p.Ceiling}
}

// Validate rejects negative weights and ceilings outside [0, 100], the range
// the report schema allows.
func (p Policy) Validate() error {
	if p.Ceiling < 0 || p.Ceiling > DefaultCeiling {
		return fmt.Errorf("score ceiling %d out of range [0,%d]", p.Ceiling, DefaultCeiling)
	}
	kinds := make([]string, 0, len(p.Weights))
	for k := range p.Weights {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if w := p.Weights[types.Kind(k)]; w < 0 {
			return fmt.Errorf("weight for %s is negative (%d)", k, w)
		}
	}
	return nil
}

// Score returns min(Ceiling, Σ weight(kind)*count(kind)). It saturates
// instead of overflowing.
func (p Policy) Score(counts types.Counts) int {
	total := 0
	for kind, n := range counts {
		w := p.Weights[kind]
		if w <= 0 || n <= 0 {
			continue
		}
		if n > p.Ceiling/w+1 {
			return p.Ceiling
		}
		total += w * n
		if total >= p.Ceiling {
			return p.Ceiling
		}
	}
	return total
}
