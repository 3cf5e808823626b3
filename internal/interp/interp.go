// Package interp implements the stream interpreter: a single-threaded state
// machine that consumes surface protocol messages in arrival order and
// maintains the layout and state snapshots a renderer reads.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/binding"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/state"
)

// Phase is the interpreter lifecycle state.
type Phase int

const (
	// AwaitingHeader: no message processed yet.
	AwaitingHeader Phase = iota
	// Buffering: structure or state has arrived but the root id does not
	// yet resolve to a buffered node.
	Buffering
	// Ready: the root resolves; the layout is fit for rendering. Ready is
	// re-entered after each later message, never left.
	Ready
)

func (p Phase) String() string {
	switch p {
	case AwaitingHeader:
		return "awaiting-header"
	case Buffering:
		return "buffering"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view handed to observers and renderers after
// each processed message.
type Snapshot struct {
	Layout  *layout.Snapshot `json:"layout"`
	State   map[string]any   `json:"state"`
	Ready   bool             `json:"ready"`
	Version string           `json:"version,omitempty"`
}

// Observer receives one snapshot per processed message, synchronously and
// never batched; coalescing is the observer's own business.
type Observer func(Snapshot)

// MismatchError is the structured, user-visible condition raised when the
// producer reports it cannot satisfy the declared catalog.
type MismatchError struct {
	Code    string
	Message string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("interp: catalog mismatch %s: %s", e.Code, e.Message)
}

// Interpreter owns one session's node buffer and state store exclusively.
// It is not safe for concurrent use; construct one per session.
type Interpreter struct {
	catalog  *catalog.Catalog
	store    *state.Store
	graph    *layout.Graph
	resolver *binding.Resolver

	phase    Phase
	version  string
	mismatch *MismatchError

	observers []Observer
	notifying bool

	logger *slog.Logger
	strict bool
}

// Option is a functional option for configuring an interpreter.
type Option func(*Interpreter)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithStrictUnknown makes unrecognized message kinds and malformed lines
// terminate Run instead of being skipped.
func WithStrictUnknown() Option {
	return func(in *Interpreter) { in.strict = true }
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(in *Interpreter) { in.observers = append(in.observers, o) }
}

// New creates an interpreter for one session over the given catalog.
func New(cat *catalog.Catalog, opts ...Option) *Interpreter {
	in := &Interpreter{
		catalog: cat,
		store:   state.NewStore(),
		graph:   layout.NewGraph(),
		phase:   AwaitingHeader,
		logger:  slog.Default(),
	}
	in.resolver = binding.NewResolver(cat, in.store)
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Subscribe registers an observer for subsequent messages.
func (in *Interpreter) Subscribe(o Observer) {
	in.observers = append(in.observers, o)
}

// Phase returns the current lifecycle state. The phase never moves
// backwards: once Ready, later messages re-enter Ready rather than
// re-traversing the machine.
func (in *Interpreter) Phase() Phase {
	return in.phase
}

// Ready reports whether the layout is fit for rendering.
func (in *Interpreter) Ready() bool {
	return in.graph.Ready()
}

// Err returns the catalog mismatch condition if the producer raised one.
func (in *Interpreter) Err() error {
	if in.mismatch == nil {
		return nil
	}
	return in.mismatch
}

// Snapshot returns deep copies of the current layout and state.
func (in *Interpreter) Snapshot() Snapshot {
	return Snapshot{
		Layout:  in.graph.Snapshot(),
		State:   in.store.Snapshot(),
		Ready:   in.graph.Ready(),
		Version: in.version,
	}
}

// Resolver returns the binding resolver bound to this session's catalog and
// state, for renderers resolving node properties.
func (in *Interpreter) Resolver() *binding.Resolver {
	return in.resolver
}

// Catalog returns the catalog this session was constructed with.
func (in *Interpreter) Catalog() *catalog.Catalog {
	return in.catalog
}

// Node looks up one buffered layout node by id.
func (in *Interpreter) Node(id string) (*layout.Node, bool) {
	return in.graph.Node(id)
}

// Process consumes one message and notifies observers exactly once. A
// message never rolls the interpreter back: every failure mode degrades to
// "skip this operation, keep prior state". Calling Process from inside an
// observer is rejected with apperr.ErrReentrant.
func (in *Interpreter) Process(msg protocol.Message) error {
	if in.notifying {
		return apperr.ErrReentrant
	}

	var procErr error
	switch m := msg.(type) {
	case protocol.StreamHeader:
		in.version = m.Version
		in.store.Replace(m.State)
		in.advance()

	case protocol.LayoutChunk:
		for _, n := range m.Nodes {
			in.graph.Put(n)
		}
		in.advance()

	case protocol.LayoutRoot:
		in.graph.SetRoot(m.RootID)
		in.advance()

	case protocol.StateUpdate:
		in.store.Merge(m.State)
		in.advance()

	case protocol.StatePatch:
		for _, f := range in.store.ApplyPatch(m.Ops) {
			in.logger.Warn("interp: state patch op skipped",
				slog.Int("index", f.Index),
				slog.String("op", f.Op),
				slog.String("path", f.Path),
				slog.String("reason", f.Reason))
		}
		in.advance()

	case protocol.LayoutPatch:
		for _, f := range in.graph.Apply(m.Ops) {
			in.logger.Warn("interp: layout patch op skipped",
				slog.Int("index", f.Index),
				slog.String("op", f.Op),
				slog.String("reason", f.Reason))
		}
		in.advance()

	case protocol.CatalogMismatch:
		in.mismatch = &MismatchError{Code: m.Code, Message: m.Message}
		procErr = in.mismatch

	default:
		if in.strict {
			return fmt.Errorf("interp: unsupported message kind %q", msg.Kind())
		}
		in.logger.Warn("interp: skipped unsupported message", slog.String("kind", msg.Kind()))
		return nil
	}

	in.notify()
	return procErr
}

// advance moves out of AwaitingHeader once any content arrives. A missing
// header is tolerated: initial state is simply empty.
func (in *Interpreter) advance() {
	if in.phase == AwaitingHeader {
		in.phase = Buffering
	}
	if in.graph.Ready() {
		in.phase = Ready
	}
}

func (in *Interpreter) notify() {
	if len(in.observers) == 0 {
		return
	}
	snap := in.Snapshot()
	in.notifying = true
	defer func() { in.notifying = false }()
	for _, o := range in.observers {
		o(snap)
	}
}

// Run consumes the decoder until the stream ends, the context is cancelled,
// or (in strict mode) a line fails. In-flight layout and state are retained
// on every exit path so the last-known-good UI stays renderable.
func (in *Interpreter) Run(ctx context.Context, d *protocol.Decoder) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var lineErr *protocol.LineError
			if errors.As(err, &lineErr) {
				if in.strict {
					return lineErr
				}
				in.logger.Warn("interp: skipped bad line",
					slog.Int("line", lineErr.Line),
					slog.String("error", lineErr.Err.Error()))
				continue
			}
			return err
		}

		if procErr := in.Process(msg); procErr != nil {
			var mismatch *MismatchError
			if errors.As(procErr, &mismatch) {
				// Terminal for this exchange, but layout/state survive.
				return mismatch
			}
			return procErr
		}
	}
}
