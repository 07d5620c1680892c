package scanner

import "time"

// State is where the scan station currently is.
type State int

const (
	Scanning State = iota
	Submitting
	Success
	AlreadyCheckedIn
	Error
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case AlreadyCheckedIn:
		return "already_checked_in"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a result state that auto-resets.
func (s State) Terminal() bool {
	return s == Success || s == AlreadyCheckedIn || s == Error
}

// User is the attendee a result refers to.
type User struct {
	Name  string
	Email string
}

// Result is what a Submitter reports for one token. Outcome is one of
// Success, AlreadyCheckedIn or Error.
type Result struct {
	Outcome State
	User    User
	Message string
}

// Snapshot is the observable state of the loop.
type Snapshot struct {
	State   State
	Token   string
	User    User
	Message string
}

// Delays are how long each result stays on screen before scanning resumes.
type Delays struct {
	Success          time.Duration
	AlreadyCheckedIn time.Duration
	Error            time.Duration
}

// DefaultDelays matches the station UX: longer on success so the attendee
// sees their name.
func DefaultDelays() Delays {
	return Delays{
		Success:          3 * time.Second,
		AlreadyCheckedIn: 2500 * time.Millisecond,
		Error:            2500 * time.Millisecond,
	}
}

func (d Delays) For(s State) time.Duration {
	switch s {
	case Success:
		return d.Success
	case AlreadyCheckedIn:
		return d.AlreadyCheckedIn
	default:
		return d.Error
	}
}
