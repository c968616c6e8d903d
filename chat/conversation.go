package chat

// Mode indicates who is currently answering a conversation: the automated
// agent or a human employee. The server is authoritative; clients mirror the
// value and reconcile on every status-changed signal.
type Mode string

const (
	ModeAI       Mode = "AI"
	ModeEmployee Mode = "EMPLOYEE"
)

// ParseMode maps a server status string to a Mode. The server reports "AI"
// for automated handling; any other non-empty value means a human has taken
// over. Unknown or empty input defaults to AI.
func ParseMode(status string) Mode {
	if status == "" || status == string(ModeAI) {
		return ModeAI
	}
	return ModeEmployee
}
