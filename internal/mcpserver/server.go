// Package mcpserver provides an MCP (Model Context Protocol) server that
// lets an LLM agent act as the surface producer via stdio transport: its
// tools emit real wire lines into a session.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/surfaceservice"
)

// Server wraps the MCP server with producer tools.
type Server struct {
	mcp *server.MCPServer
	svc *surfaceservice.Service
}

// New creates a new MCP server with all producer tools registered.
func New(svc *surfaceservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("begin_stream",
		mcp.WithDescription("Create a surface session and send its stream header. "+
			"Read the stream contract first via the get_stream_contract tool or the "+
			"raido://stream-format resource."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Protocol version, e.g. 1.0")),
		mcp.WithString("state", mcp.Description("Initial state as a JSON object (optional)")),
	), s.beginStream)

	s.mcp.AddTool(mcp.NewTool("push_nodes",
		mcp.WithDescription("Add layout nodes to a session's buffer. nodes is a JSON array of "+
			"node objects with id, type, properties, and optional itemTemplate."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("nodes", mcp.Required(), mcp.Description("JSON array of layout nodes")),
	), s.pushNodes)

	s.mcp.AddTool(mcp.NewTool("set_root",
		mcp.WithDescription("Declare which node id is the layout root. The session becomes "+
			"ready once the root node is buffered."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("root_id", mcp.Required(), mcp.Description("Root node id")),
	), s.setRoot)

	s.mcp.AddTool(mcp.NewTool("update_state",
		mcp.WithDescription("Deep-merge a partial JSON object into the session state. "+
			"Object values recurse; arrays and scalars overwrite."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Partial state as a JSON object")),
	), s.updateState)

	s.mcp.AddTool(mcp.NewTool("patch_state",
		mcp.WithDescription("Apply RFC 6902-style add/remove/replace operations to session "+
			"state. ops is a JSON array of {op, path, value} objects with JSON Pointer paths."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("ops", mcp.Required(), mcp.Description("JSON array of patch operations")),
	), s.patchState)

	s.mcp.AddTool(mcp.NewTool("patch_layout",
		mcp.WithDescription("Apply structural add/remove/replace operations to the session "+
			"layout. ops is a JSON array of {op, targetId, property, nodes, ids} objects."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("ops", mcp.Required(), mcp.Description("JSON array of layout operations")),
	), s.patchLayout)

	s.mcp.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Return the session's current layout, state, and readiness, with "+
			"node properties resolved against state."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
	), s.getSnapshot)

	s.mcp.AddTool(mcp.NewTool("get_stream_contract",
		mcp.WithDescription("Returns the canonical surface stream wire contract. "+
			"Call this before producing messages to ensure correct structure."),
	), s.getStreamContract)

	// Resource: stream format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://stream-format", "Surface Stream Contract",
			mcp.WithResourceDescription("Canonical wire format every stream message must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStreamFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ingest encodes msg as a wire line and feeds it through the normal ingest
// path, so MCP-driven sessions journal and replay like any other.
func (s *Server) ingest(sessionID string, msg protocol.Message) (*mcp.CallToolResult, error) {
	line, err := protocol.Encode(msg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.svc.Ingest(sessionID, line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("ok (ready=%v, nodes=%d)", snap.Ready, len(snap.Layout.Nodes))), nil
}

func (s *Server) beginStream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version, err := req.RequireString("version")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var initial map[string]any
	if raw, strErr := req.RequireString("state"); strErr == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &initial); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("state is not a JSON object: %v", err)), nil
		}
	}

	if err := s.svc.CreateSession(session); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create session %s: %v", session, err)), nil
	}
	return s.ingest(session, protocol.StreamHeader{Version: version, State: initial})
}

func (s *Server) pushNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("nodes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var chunk protocol.LayoutChunk
	if err := json.Unmarshal([]byte(raw), &chunk.Nodes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("nodes is not a JSON array of nodes: %v", err)), nil
	}
	return s.ingest(session, chunk)
}

func (s *Server) setRoot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rootID, err := req.RequireString("root_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.ingest(session, protocol.LayoutRoot{RootID: rootID})
}

func (s *Server) updateState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var partial map[string]any
	if err := json.Unmarshal([]byte(raw), &partial); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("state is not a JSON object: %v", err)), nil
	}
	return s.ingest(session, protocol.StateUpdate{State: partial})
}

func (s *Server) patchState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("ops")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch protocol.StatePatch
	if err := json.Unmarshal([]byte(raw), &patch.Ops); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ops is not a JSON array of operations: %v", err)), nil
	}
	return s.ingest(session, patch)
}

func (s *Server) patchLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("ops")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch protocol.LayoutPatch
	if err := json.Unmarshal([]byte(raw), &patch.Ops); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ops is not a JSON array of operations: %v", err)), nil
	}
	return s.ingest(session, patch)
}

func (s *Server) getSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.svc.Snapshot(session)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", session)), nil
	}
	resolved, err := s.svc.Resolved(session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"snapshot": snap,
		"resolved": resolved,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getStreamContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StreamFormatContract), nil
}

func (s *Server) readStreamFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://stream-format",
			MIMEType: "text/markdown",
			Text:     StreamFormatContract,
		},
	}, nil
}
