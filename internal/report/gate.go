package report

import "github.com/hqc-securechain/qrisk/internal/types"

// ShouldFail reports whether rep breaches a --fail-above threshold. A
// negative threshold disables the gate.
func ShouldFail(rep types.Report, threshold int) bool {
	return threshold >= 0 && rep.RiskScore > threshold
}
