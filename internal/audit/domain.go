package audit

import "time"

// Action tags a security-relevant transition.
type Action string

const (
	ActionRegister  Action = "REGISTER"
	ActionLogin     Action = "LOGIN"
	ActionLogout    Action = "LOGOUT"
	ActionRevokeAll Action = "REVOKE_ALL_TOKENS"
)

// Event is one append-only audit record. UserID is nil for anonymous
// failures. Events are written once and never updated or deleted.
type Event struct {
	ID         int64
	UserID     *int64
	Action     Action
	Entity     string
	IP         string
	UserAgent  string
	OccurredAt time.Time
}
