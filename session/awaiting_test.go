package session

import (
	"testing"
	"time"

	"github.com/freshplate/supportchat/chat"
)

func pendingFrom(role chat.Role) chat.Message {
	return chat.Message{ID: "p1", SenderRole: role, Status: chat.StatusPending, Timestamp: time.Now()}
}

func confirmedFrom(role chat.Role) chat.Message {
	return chat.Message{ID: "m1", SenderRole: role, Status: chat.StatusConfirmed, Timestamp: time.Now()}
}

func TestAwaitingResponseTracker_Derivation(t *testing.T) {
	tests := []struct {
		name   string
		last   chat.Message
		exists bool
		mode   chat.Mode
		want   bool
	}{
		{name: "empty history", exists: false, mode: chat.ModeAI, want: false},
		{name: "pending AI message", last: pendingFrom(chat.RoleAI), exists: true, mode: chat.ModeAI, want: true},
		{name: "pending AI message in employee mode", last: pendingFrom(chat.RoleAI), exists: true, mode: chat.ModeEmployee, want: true},
		{name: "pending customer message in AI mode", last: pendingFrom(chat.RoleCustomer), exists: true, mode: chat.ModeAI, want: true},
		{name: "pending customer message in employee mode", last: pendingFrom(chat.RoleCustomer), exists: true, mode: chat.ModeEmployee, want: false},
		{name: "confirmed customer message in AI mode", last: confirmedFrom(chat.RoleCustomer), exists: true, mode: chat.ModeAI, want: false},
		{name: "confirmed AI message", last: confirmedFrom(chat.RoleAI), exists: true, mode: chat.ModeAI, want: false},
		{name: "pending employee message", last: pendingFrom(chat.RoleEmployee), exists: true, mode: chat.ModeEmployee, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewAwaitingResponseTracker()
			if got := tracker.Recompute(tt.last, tt.exists, tt.mode); got != tt.want {
				t.Errorf("Recompute() = %v, want %v", got, tt.want)
			}
			if tracker.Value() != tt.want {
				t.Errorf("Value() = %v, want %v", tracker.Value(), tt.want)
			}
		})
	}
}

func TestAwaitingResponseTracker_Force(t *testing.T) {
	tracker := NewAwaitingResponseTracker()

	tracker.Force()
	if !tracker.Value() {
		t.Error("Value() = false after Force")
	}

	// A disagreeing derivation supersedes the forced flag.
	tracker.Recompute(confirmedFrom(chat.RoleAI), true, chat.ModeAI)
	if tracker.Value() {
		t.Error("Value() = true after derivation disagreed with forced flag")
	}
}

func TestAwaitingResponseTracker_Expire(t *testing.T) {
	tracker := NewAwaitingResponseTracker()
	tracker.Recompute(pendingFrom(chat.RoleCustomer), true, chat.ModeAI)
	if !tracker.Value() {
		t.Fatal("precondition: awaiting should be true")
	}

	tracker.Expire()
	if tracker.Value() {
		t.Error("Value() = true after Expire")
	}
}

func TestAwaitingResponseTracker_TimerFires(t *testing.T) {
	tracker := NewAwaitingResponseTracker()
	fired := make(chan struct{})

	tracker.Arm(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestAwaitingResponseTracker_Disarm(t *testing.T) {
	tracker := NewAwaitingResponseTracker()
	fired := make(chan struct{}, 1)

	tracker.Arm(20*time.Millisecond, func() { fired <- struct{}{} })
	tracker.Disarm()

	select {
	case <-fired:
		t.Error("timer fired after Disarm")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestAwaitingResponseTracker_ArmReplacesTimer(t *testing.T) {
	tracker := NewAwaitingResponseTracker()
	var first, second = make(chan struct{}, 1), make(chan struct{}, 1)

	tracker.Arm(20*time.Millisecond, func() { first <- struct{}{} })
	tracker.Arm(20*time.Millisecond, func() { second <- struct{}{} })

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}
	select {
	case <-first:
		t.Error("replaced timer fired")
	case <-time.After(40 * time.Millisecond):
	}

	tracker.Reset()
}
