// Package protocol defines the wire messages of the surface stream: a
// discriminated union of newline-delimited JSON objects tagged by a "kind"
// field, plus the outbound user-event shape.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/state"
)

// Message kinds carried in the "kind" discriminator.
const (
	KindStreamHeader    = "streamHeader"
	KindLayoutChunk     = "layoutChunk"
	KindLayoutRoot      = "layoutRoot"
	KindStateUpdate     = "stateUpdate"
	KindStatePatch      = "statePatch"
	KindLayoutPatch     = "layoutPatch"
	KindCatalogMismatch = "catalogMismatchError"
)

// Message is the sealed union of stream message kinds. Each message is
// consumed once; only its effect on layout and state persists.
type Message interface {
	Kind() string
}

// StreamHeader opens an exchange: protocol version plus the initial state.
type StreamHeader struct {
	Version string         `json:"version"`
	State   map[string]any `json:"state,omitempty"`
}

// LayoutChunk carries a batch of nodes to add to the layout buffer. A chunk
// redefining an existing id overwrites it.
type LayoutChunk struct {
	Nodes []*layout.Node `json:"nodes"`
}

// LayoutRoot declares which buffered node id is the root.
type LayoutRoot struct {
	RootID string `json:"rootId"`
}

// StateUpdate deep-merges a partial object into state.
type StateUpdate struct {
	State map[string]any `json:"state"`
}

// StatePatch carries RFC 6902-style operations against state.
type StatePatch struct {
	Ops []state.Op `json:"ops"`
}

// LayoutPatch carries structural operations against the layout graph.
type LayoutPatch struct {
	Ops []layout.Op `json:"ops"`
}

// CatalogMismatch is the producer reporting that it cannot satisfy the
// declared catalog. It carries a machine-readable code and a human-readable
// message and does not corrupt in-flight layout or state.
type CatalogMismatch struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (StreamHeader) Kind() string    { return KindStreamHeader }
func (LayoutChunk) Kind() string     { return KindLayoutChunk }
func (LayoutRoot) Kind() string      { return KindLayoutRoot }
func (StateUpdate) Kind() string     { return KindStateUpdate }
func (StatePatch) Kind() string      { return KindStatePatch }
func (LayoutPatch) Kind() string     { return KindLayoutPatch }
func (CatalogMismatch) Kind() string { return KindCatalogMismatch }

// UnknownKindError reports a line whose discriminator names no known kind.
// Whether it is fatal is the interpreter's policy, not the decoder's.
type UnknownKindError struct {
	Tag string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("protocol: unknown message kind %q", e.Tag)
}

type envelope struct {
	Kind string `json:"kind"`
}

// Decode parses one line into the message union.
func Decode(line []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("protocol: parse line: %w", err)
	}
	var (
		msg Message
		err error
	)
	switch env.Kind {
	case KindStreamHeader:
		var m StreamHeader
		err = json.Unmarshal(line, &m)
		msg = m
	case KindLayoutChunk:
		var m LayoutChunk
		err = json.Unmarshal(line, &m)
		msg = m
	case KindLayoutRoot:
		var m LayoutRoot
		err = json.Unmarshal(line, &m)
		msg = m
	case KindStateUpdate:
		var m StateUpdate
		err = json.Unmarshal(line, &m)
		msg = m
	case KindStatePatch:
		var m StatePatch
		err = json.Unmarshal(line, &m)
		msg = m
	case KindLayoutPatch:
		var m LayoutPatch
		err = json.Unmarshal(line, &m)
		msg = m
	case KindCatalogMismatch:
		var m CatalogMismatch
		err = json.Unmarshal(line, &m)
		msg = m
	default:
		return nil, &UnknownKindError{Tag: env.Kind}
	}
	if err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.Kind, err)
	}
	return msg, nil
}

// Encode renders a message as one wire line (no trailing newline).
func Encode(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msg.Kind(), err)
	}
	// Splice the discriminator into the flat object.
	if string(body) == "{}" {
		return []byte(fmt.Sprintf(`{"kind":%q}`, msg.Kind())), nil
	}
	out := append([]byte(fmt.Sprintf(`{"kind":%q,`, msg.Kind())), body[1:]...)
	return out, nil
}
