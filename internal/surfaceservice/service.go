// Package surfaceservice coordinates one interpreter per surface session
// with the journal and the SSE broker. It is the application-facing API the
// HTTP handlers and the MCP bridge call into.
package surfaceservice

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/interp"
	"github.com/starford/raido/internal/journal"
	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/sse"
)

// Service owns the live interpreter instances. Each session gets its own
// interpreter; access is serialized through the service mutex because an
// interpreter is single-threaded by design.
type Service struct {
	db     journal.Store
	broker *sse.Broker
	logger *slog.Logger

	mu       sync.Mutex
	catalog  *catalog.Catalog
	sessions map[string]*interp.Interpreter
}

// NewService creates a service over the given catalog, journal, and broker.
// broker may be nil (no fan-out, e.g. in the replay CLI).
func NewService(cat *catalog.Catalog, db journal.Store, broker *sse.Broker, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		broker:   broker,
		logger:   logger,
		catalog:  cat,
		sessions: map[string]*interp.Interpreter{},
	}
}

// SetCatalog swaps the catalog for sessions created afterwards. Live
// sessions keep the catalog they were constructed with; a catalog is
// immutable per session.
func (s *Service) SetCatalog(cat *catalog.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = cat
}

// CatalogReference returns the digest of the catalog new sessions will use.
func (s *Service) CatalogReference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Reference()
}

// CreateSession registers a new session in the journal and constructs its
// interpreter. apperr.ErrAlreadyExists is returned for a duplicate id.
func (s *Service) CreateSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.CreateSession(id, s.catalog.Reference()); err != nil {
		return err
	}
	s.sessions[id] = interp.New(s.catalog, interp.WithLogger(s.logger))
	return nil
}

// session returns the live interpreter for id, rebuilding it from the
// journal when the session exists on disk but not in memory (process
// restart).
func (s *Service) session(id string) (*interp.Interpreter, error) {
	if in, ok := s.sessions[id]; ok {
		return in, nil
	}
	row, err := s.db.GetSession(id)
	if err != nil {
		return nil, err
	}
	if row.CatalogRef != s.catalog.Reference() {
		// A live reload swapped the catalog since this session was created;
		// the replay runs under the current one, so defaults may differ.
		s.logger.Warn("surface: rebuilding session under a different catalog",
			slog.String("session", id),
			slog.String("recorded", row.CatalogRef),
			slog.String("current", s.catalog.Reference()))
	}
	in := interp.New(s.catalog, interp.WithLogger(s.logger))
	err = s.db.Replay(id, func(line string) error {
		msg, decErr := protocol.Decode([]byte(line))
		if decErr != nil {
			// A line that was bad on arrival is skipped the same way on
			// replay.
			s.logger.Warn("surface: replay skipped bad line",
				slog.String("session", id),
				slog.String("error", decErr.Error()))
			return nil
		}
		if procErr := in.Process(msg); procErr != nil {
			s.logger.Warn("surface: replay message error",
				slog.String("session", id),
				slog.String("error", procErr.Error()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("surface: rebuild session %s: %w", id, err)
	}
	s.sessions[id] = in
	return in, nil
}

// Ingest journals one raw stream line for a session and feeds it to the
// session's interpreter. The line is journaled before decoding so the
// transcript is faithful to what arrived. A malformed line is a per-line
// failure; the session stays usable.
func (s *Service) Ingest(sessionID string, line []byte) (interp.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := s.session(sessionID)
	if err != nil {
		return interp.Snapshot{}, err
	}

	if _, err := s.db.AppendLine(sessionID, string(line)); err != nil {
		return interp.Snapshot{}, err
	}

	msg, err := protocol.Decode(line)
	if err != nil {
		return in.Snapshot(), fmt.Errorf("surface: %w", err)
	}

	procErr := in.Process(msg)
	snap := in.Snapshot()
	if s.broker != nil {
		s.broker.PublishSurfaceUpdate(sessionID, snap.Ready, snap)
	}
	return snap, procErr
}

// Snapshot returns the current snapshot for a session.
func (s *Service) Snapshot(sessionID string) (interp.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, err := s.session(sessionID)
	if err != nil {
		return interp.Snapshot{}, err
	}
	return in.Snapshot(), nil
}

// Resolved returns each node's properties with bindings resolved against
// the session's current state (global scope). Renderers that stamp item
// templates resolve those per item through the interpreter's Resolver.
func (s *Service) Resolved(sessionID string) (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	snap := in.Snapshot()
	out := make(map[string]map[string]any, len(snap.Layout.Nodes))
	for id, n := range snap.Layout.Nodes {
		out[id] = in.Resolver().ProcessNode(n, nil)
	}
	return out, nil
}

// RecordEvent journals an outbound user event. The service does not
// transmit it; the transport collaborator reads the journal or receives the
// event alongside the snapshot. Arguments that fail the source node's
// declared event schema are logged, not rejected: the producer decides what
// to do with an off-contract event.
func (s *Service) RecordEvent(sessionID string, ev protocol.UserEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, err := s.session(sessionID)
	if err != nil {
		return err
	}

	if node, ok := in.Node(ev.SourceNodeID); ok {
		if schema := in.Catalog().Events(node.Type); schema != nil {
			for _, f := range catalog.ValidateAgainst(schema, ev.Arguments) {
				s.logger.Warn("surface: event arguments off schema",
					slog.String("session", sessionID),
					slog.String("node", ev.SourceNodeID),
					slog.String("path", f.Path),
					slog.String("reason", f.Reason))
			}
		}
	}
	return s.db.RecordEvent(sessionID, ev)
}

// Sessions lists known sessions from the journal.
func (s *Service) Sessions() ([]journal.SessionRow, error) {
	return s.db.ListSessions()
}

// SessionReady reports readiness without copying the full snapshot.
func (s *Service) SessionReady(sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, err := s.session(sessionID)
	if err != nil {
		return false, err
	}
	return in.Ready(), nil
}
