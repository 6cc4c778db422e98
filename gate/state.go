package gate

// State is the gate's lifecycle position.
type State uint8

const (
	Idle State = iota
	Checking
	Executing
	AwaitingAuth
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Executing:
		return "executing"
	case AwaitingAuth:
		return "awaiting_auth"
	default:
		return "unknown"
	}
}

// Outcome reports what Invoke or Resume did with the operation.
type Outcome uint8

const (
	// Executed means the operation ran; its error is returned alongside.
	Executed Outcome = iota
	// Prompted means a check failed and the gate is awaiting authentication.
	Prompted
	// Released means the request was abandoned before the operation ran.
	Released
)

func (o Outcome) String() string {
	switch o {
	case Executed:
		return "executed"
	case Prompted:
		return "prompted"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}
