package session

import "github.com/freshplate/supportchat/chat"

// ModeStateMachine mirrors the server-authoritative serving mode of the
// conversation. The machine never transitions on its own: every change is
// driven by a server status fetch, and a failed fetch fails open to AI so the
// UI never sits in an indeterminate state. Mode changes do not clear message
// history; only a conversation-id change does.
type ModeStateMachine struct {
	mode chat.Mode
}

// NewModeStateMachine creates a machine in AI mode, the default when the
// server has not reported a status yet.
func NewModeStateMachine() *ModeStateMachine {
	return &ModeStateMachine{mode: chat.ModeAI}
}

// Apply records a fetched status string and returns the resulting mode.
func (m *ModeStateMachine) Apply(status string) chat.Mode {
	m.mode = chat.ParseMode(status)
	return m.mode
}

// FailOpen handles a failed status fetch by reverting to AI.
func (m *ModeStateMachine) FailOpen() chat.Mode {
	m.mode = chat.ModeAI
	return m.mode
}

// Reset restores the initial AI state for a new conversation.
func (m *ModeStateMachine) Reset() {
	m.mode = chat.ModeAI
}

// Mode returns the current serving mode.
func (m *ModeStateMachine) Mode() chat.Mode {
	return m.mode
}
