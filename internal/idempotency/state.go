package idempotency

// Phase is the coarse submission state of a form.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// State is a snapshot of a Guard.
//
//   - Idle: nothing submitted, or cancelled/reset.
//   - Pending: Token is in flight.
//   - Succeeded: Token was retired. Duplicate is set when the upstream
//     reported the operation as already applied.
//   - Failed: the last attempt failed with Err. Token is retained for retry
//     after transient or unexpected failures, and empty after the upstream
//     rejected the record (validation_error, not_found).
type State struct {
	Phase     Phase
	Token     Token
	Duplicate bool
	Err       error
}
