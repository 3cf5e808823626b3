package journal

import "github.com/starford/raido/internal/protocol"

// Store defines the interface for session journaling. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Store interface {
	CreateSession(id, catalogRef string) error
	GetSession(id string) (*SessionRow, error)
	ListSessions() ([]SessionRow, error)
	AppendLine(sessionID, line string) (int64, error)
	Lines(sessionID string) ([]string, error)
	Replay(sessionID string, fn func(line string) error) error
	RecordEvent(sessionID string, ev protocol.UserEvent) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
