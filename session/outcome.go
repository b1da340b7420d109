package session

import "fmt"

// Outcome is the terminal status of a decode session.
type Outcome string

// Session outcomes.
const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeDecodeError   Outcome = "decode_error"
	OutcomePolicyFailure Outcome = "policy_failure"
	OutcomeCanceled      Outcome = "canceled"
)

// Exit codes returned by the CLI for each outcome.
const (
	ExitCodeCompleted     = 0   // stream decoded to the end
	ExitCodeDecodeError   = 1   // malformed or truncated stream
	ExitCodePolicyFailure = 2   // archive policy or sink failure
	ExitCodeInvalidInput  = 3   // invalid arguments or configuration
	ExitCodeCanceled      = 130 // interrupted
)

// ExitCode returns the process exit code for o.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeCompleted:
		return ExitCodeCompleted
	case OutcomeDecodeError:
		return ExitCodeDecodeError
	case OutcomePolicyFailure:
		return ExitCodePolicyFailure
	case OutcomeCanceled:
		return ExitCodeCanceled
	default:
		return ExitCodeDecodeError
	}
}

// DetermineOutcome maps the engine error and the final flush error to an
// outcome. A failed final flush turns an otherwise completed session into
// a policy failure; an earlier engine error takes precedence.
func DetermineOutcome(runErr, flushErr error) (Outcome, string) {
	switch {
	case runErr == nil && flushErr == nil:
		return OutcomeCompleted, "session completed"
	case runErr == nil:
		return OutcomePolicyFailure, fmt.Sprintf("final flush failed: %v", flushErr)
	case IsCanceledError(runErr):
		return OutcomeCanceled, "session canceled"
	case IsPolicyError(runErr):
		return OutcomePolicyFailure, fmt.Sprintf("policy failure: %v", runErr)
	default:
		return OutcomeDecodeError, fmt.Sprintf("decode error: %v", runErr)
	}
}
