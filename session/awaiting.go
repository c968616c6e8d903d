package session

import (
	"time"

	"github.com/freshplate/supportchat/chat"
)

// AwaitingResponseTracker maintains the "waiting for reply" indicator. The
// value is derived from the newest message and the serving mode on every
// state change; the derivation supersedes the force-true flag set at send
// time as soon as they disagree. A timeout safety valve force-clears the
// indicator if nothing confirms the pending message in time.
//
// The tracker is not safe for concurrent use; the owning Controller
// serializes all access.
type AwaitingResponseTracker struct {
	value  bool
	forced bool
	timer  *time.Timer
}

// NewAwaitingResponseTracker creates a cleared tracker.
func NewAwaitingResponseTracker() *AwaitingResponseTracker {
	return &AwaitingResponseTracker{}
}

// Recompute derives the awaiting value from the newest message and mode:
// awaiting when the last message is an AI-authored pending message, or when
// the mode is AI and the last message is a customer-authored pending one.
// Returns the resulting value.
func (t *AwaitingResponseTracker) Recompute(last chat.Message, exists bool, mode chat.Mode) bool {
	derived := exists && last.Pending() &&
		(last.SenderRole == chat.RoleAI ||
			(mode == chat.ModeAI && last.SenderRole == chat.RoleCustomer))

	if t.forced && !derived {
		t.forced = false
	}
	t.value = derived || t.forced
	return t.value
}

// Force sets the indicator synchronously for immediate UI feedback at send
// time, before the next recompute catches up.
func (t *AwaitingResponseTracker) Force() {
	t.forced = true
	t.value = true
}

// Arm starts the timeout safety valve, replacing any previous timer. fire
// runs on the timer goroutine; the Controller re-locks and expires the
// tracker there.
func (t *AwaitingResponseTracker) Arm(d time.Duration, fire func()) {
	t.Disarm()
	t.timer = time.AfterFunc(d, fire)
}

// Disarm stops the timeout timer. Called when a fetch confirms the pending
// message and at teardown.
func (t *AwaitingResponseTracker) Disarm() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Expire force-clears the indicator after the timeout fired. The value stays
// false until a later state change recomputes it.
func (t *AwaitingResponseTracker) Expire() {
	t.forced = false
	t.value = false
	t.timer = nil
}

// Reset clears all state for a new conversation.
func (t *AwaitingResponseTracker) Reset() {
	t.Disarm()
	t.forced = false
	t.value = false
}

// Value returns the current indicator without recomputing.
func (t *AwaitingResponseTracker) Value() bool {
	return t.value
}
