package types

// Kind classifies a quantum-risk pattern.
type Kind string

const (
	KindEcrecover   Kind = "ECRECOVER_USAGE"
	KindKeyExposure Kind = "KEY_EXPOSURE"
)

// Location points at the node that produced a finding. Lines and columns are 1-based.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// Finding is one occurrence of a recognised risk pattern.
type Finding struct {
	Kind     Kind      `json:"kind"`
	RuleID   string    `json:"ruleId"`
	Message  string    `json:"message"`
	Entity   string    `json:"entity,omitempty"` // identifier involved, if any
	Location *Location `json:"location,omitempty"`
}

// Counts holds per-kind occurrence counts for one run.
type Counts map[Kind]int

// Report is the persisted analysis artifact. Field names and order are a
// contract with downstream readers; do not change them without a schema bump.
type Report struct {
	Contract               string   `json:"contract"`
	EcrecoverCount         int      `json:"ecrecoverCount"`
	PublicKeyExposureCount int      `json:"publicKeyExposureCount"`
	RiskScore              int      `json:"riskScore"`
	Warnings               []string `json:"warnings"`
}
