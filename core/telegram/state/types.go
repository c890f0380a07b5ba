package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and the typed payload for a user.
type Session[T any] struct {
	State     State
	Data      T
	UpdatedAt time.Time
}

// Manager owns per-user sessions. Implementations must be safe for concurrent use.
type Manager[T any] interface {
	Get(userID int64) (Session[T], bool)
	Save(userID int64, st State, data T)
	GetState(userID int64) State
	InProgress(userID int64) bool
	Clear(userID int64)
	Len() int
	Oldest() (time.Time, bool)
}
