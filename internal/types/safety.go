package types

// ApprovalThreshold is the confidence a message must exceed to be approved
// when no violations were found.
const ApprovalThreshold = 0.7

// ScanBlockedReason is the reason attached when the scanner itself fails.
const ScanBlockedReason = "scan failed: content blocked for review"

// SafetyResult is the outcome of scanning a piece of text.
type SafetyResult struct {
	Approved       bool     `json:"is_approved"`
	Confidence     float64  `json:"confidence"`
	Reasons        []string `json:"reasons,omitempty"`
	SuggestedEdits []string `json:"suggested_edits,omitempty"`
}

// Finalize derives the approval flag from the invariant: approved iff no
// reasons AND confidence above the threshold. Confidence alone can never
// override a non-empty reasons list.
func (r *SafetyResult) Finalize() {
	r.Approved = len(r.Reasons) == 0 && r.Confidence > ApprovalThreshold
}

// BlockedResult is the fail-closed default used when scanning faults.
func BlockedResult() SafetyResult {
	return SafetyResult{
		Approved:   false,
		Confidence: 0,
		Reasons:    []string{ScanBlockedReason},
	}
}
