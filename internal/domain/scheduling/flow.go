package scheduling

import "fmt"

// FlowState is a step of the booking wizard.
type FlowState string

const (
	StateSelectingDate     FlowState = "selecting_date"
	StateSelectingTime     FlowState = "selecting_time"
	StateConfirmingDetails FlowState = "confirming_details"
	StateSubmitted         FlowState = "submitted"
	StateFailed            FlowState = "failed"
)

// flowTransitions defines the legal wizard moves. A failed submission goes
// back through time selection so the caller re-fetches availability before
// retrying, matching how a write-time conflict is meant to be handled.
var flowTransitions = map[FlowState][]FlowState{
	StateSelectingDate:     {StateSelectingTime},
	StateSelectingTime:     {StateSelectingDate, StateConfirmingDetails},
	StateConfirmingDetails: {StateSelectingDate, StateSelectingTime, StateSubmitted, StateFailed},
	StateSubmitted:         {},
	StateFailed:            {StateSelectingTime},
}

// BookingFlow is the explicit finite-state machine behind the booking
// wizard, decoupled from any presentation concerns.
type BookingFlow struct {
	state  FlowState
	date   string
	time   string
	reason string
}

// NewBookingFlow starts a flow at date selection.
func NewBookingFlow() *BookingFlow {
	return &BookingFlow{state: StateSelectingDate}
}

func (f *BookingFlow) State() FlowState { return f.state }
func (f *BookingFlow) Date() string     { return f.date }
func (f *BookingFlow) Time() string     { return f.time }
func (f *BookingFlow) Reason() string   { return f.reason }

// CanTransition reports whether moving to the given state is legal.
func (f *BookingFlow) CanTransition(to FlowState) bool {
	for _, allowed := range flowTransitions[f.state] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (f *BookingFlow) transition(to FlowState) error {
	if !f.CanTransition(to) {
		return fmt.Errorf("cannot move from %s to %s", f.state, to)
	}
	f.state = to
	return nil
}

// SelectDate records the chosen date and advances to time selection.
// Re-selecting a date from a later step clears the downstream choices.
func (f *BookingFlow) SelectDate(date string) error {
	if date == "" {
		return fmt.Errorf("date is required")
	}
	if f.state != StateSelectingDate {
		if err := f.transition(StateSelectingDate); err != nil {
			return err
		}
	}
	f.date = date
	f.time = ""
	return f.transition(StateSelectingTime)
}

// SelectTime records the chosen time and advances to confirmation.
func (f *BookingFlow) SelectTime(t string) error {
	if t == "" {
		return fmt.Errorf("time is required")
	}
	if f.state != StateSelectingTime {
		return fmt.Errorf("cannot select a time from %s", f.state)
	}
	f.time = t
	return f.transition(StateConfirmingDetails)
}

// Confirm records the visit reason while staying on the confirmation step.
func (f *BookingFlow) Confirm(reason string) error {
	if f.state != StateConfirmingDetails {
		return fmt.Errorf("cannot confirm details from %s", f.state)
	}
	f.reason = reason
	return nil
}

// Submit marks the flow as successfully submitted. Terminal.
func (f *BookingFlow) Submit() error {
	return f.transition(StateSubmitted)
}

// Fail marks the submission as failed; Retry is the only way out.
func (f *BookingFlow) Fail() error {
	return f.transition(StateFailed)
}

// Retry returns a failed flow to time selection with the date preserved,
// forcing a fresh availability fetch before the next attempt.
func (f *BookingFlow) Retry() error {
	if err := f.transition(StateSelectingTime); err != nil {
		return err
	}
	f.time = ""
	return nil
}
