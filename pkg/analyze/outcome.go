package analyze

import "github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"

// OutcomeKind tags the result of an analysis attempt. Model output is never
// trusted as-is: a parsed-and-validated judgment, a malformed response, and a
// transport failure are three distinct outcomes with different handling.
type OutcomeKind int

const (
	// OutcomeOK means the model returned a judgment that parsed and
	// validated. Citations are NOT yet verified.
	OutcomeOK OutcomeKind = iota
	// OutcomeMalformed means the model responded but the output could not be
	// parsed into a judgment, even after one stricter retry.
	OutcomeMalformed
	// OutcomeAPIError means the model endpoint failed (network, quota,
	// budget). The attempt may be retried by the caller.
	OutcomeAPIError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeMalformed:
		return "malformed_output"
	case OutcomeAPIError:
		return "api_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one analysis attempt.
type Outcome struct {
	Kind   OutcomeKind
	Result *hansard.AnalysisResult // set only when Kind == OutcomeOK
	Err    error                   // set when Kind != OutcomeOK
}
