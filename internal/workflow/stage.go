package workflow

// Stage is a step of the verification workflow.
type Stage int

const (
	StageStockInput Stage = iota + 1
	StageAllocation
	StageAttestation
	StageProof
	StageSubmitted
)

var stageNames = map[Stage]string{
	StageStockInput:  "STOCK_INPUT",
	StageAllocation:  "ALLOCATION",
	StageAttestation: "ATTESTATION",
	StageProof:       "PROOF",
	StageSubmitted:   "SUBMITTED",
}

// String returns the stable stage name used in logs and metrics.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}
