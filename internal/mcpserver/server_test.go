package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/surfaceservice"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) (*Server, *surfaceservice.Service) {
	t.Helper()
	svc := surfaceservice.NewService(
		testutil.TestCatalog(t), testutil.TestJournal(t), nil, slog.New(slog.DiscardHandler))
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we call the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "begin_stream":
		result, err = srv.beginStream(ctx, req)
	case "push_nodes":
		result, err = srv.pushNodes(ctx, req)
	case "set_root":
		result, err = srv.setRoot(ctx, req)
	case "update_state":
		result, err = srv.updateState(ctx, req)
	case "patch_state":
		result, err = srv.patchState(ctx, req)
	case "patch_layout":
		result, err = srv.patchLayout(ctx, req)
	case "get_snapshot":
		result, err = srv.getSnapshot(ctx, req)
	case "get_stream_contract":
		result, err = srv.getStreamContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestProduceFullStream(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "begin_stream", map[string]interface{}{
		"session": "s1",
		"version": "1.0",
		"state":   `{"user":{"name":"Alice"}}`,
	})
	if r.IsError {
		t.Fatalf("begin_stream: %s", resultText(r))
	}

	r = callTool(t, srv, "push_nodes", map[string]interface{}{
		"session": "s1",
		"nodes":   `[{"id":"greeting","type":"Text","properties":{"text":{"path":"user.name","format":"Welcome, {}!"}}}]`,
	})
	if r.IsError {
		t.Fatalf("push_nodes: %s", resultText(r))
	}

	r = callTool(t, srv, "set_root", map[string]interface{}{
		"session": "s1",
		"root_id": "greeting",
	})
	if r.IsError {
		t.Fatalf("set_root: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "ready=true") {
		t.Errorf("set_root result = %q, want ready=true", resultText(r))
	}

	// Tool-driven sessions journal like any other.
	snap, err := svc.Snapshot("s1")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Ready {
		t.Error("session not ready")
	}

	r = callTool(t, srv, "get_snapshot", map[string]interface{}{"session": "s1"})
	var out struct {
		Resolved map[string]map[string]any `json:"resolved"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("get_snapshot output is not JSON: %v", err)
	}
	if out.Resolved["greeting"]["text"] != "Welcome, Alice!" {
		t.Errorf("resolved = %v", out.Resolved)
	}
}

func TestUpdateAndPatchState(t *testing.T) {
	srv, svc := testServer(t)
	callTool(t, srv, "begin_stream", map[string]interface{}{
		"session": "s1", "version": "1.0", "state": `{"count":1}`,
	})

	r := callTool(t, srv, "update_state", map[string]interface{}{
		"session": "s1",
		"state":   `{"count":2}`,
	})
	if r.IsError {
		t.Fatalf("update_state: %s", resultText(r))
	}

	r = callTool(t, srv, "patch_state", map[string]interface{}{
		"session": "s1",
		"ops":     `[{"op":"add","path":"/flag","value":true}]`,
	})
	if r.IsError {
		t.Fatalf("patch_state: %s", resultText(r))
	}

	snap, _ := svc.Snapshot("s1")
	if snap.State["count"] != float64(2) || snap.State["flag"] != true {
		t.Errorf("state = %v", snap.State)
	}
}

func TestPatchLayout(t *testing.T) {
	srv, svc := testServer(t)
	callTool(t, srv, "begin_stream", map[string]interface{}{
		"session": "s1", "version": "1.0",
	})
	callTool(t, srv, "push_nodes", map[string]interface{}{
		"session": "s1",
		"nodes":   `[{"id":"root","type":"List","properties":{"children":[]}}]`,
	})
	callTool(t, srv, "set_root", map[string]interface{}{"session": "s1", "root_id": "root"})

	r := callTool(t, srv, "patch_layout", map[string]interface{}{
		"session": "s1",
		"ops":     `[{"op":"add","targetId":"root","property":"children","nodes":[{"id":"row","type":"Text"}]}]`,
	})
	if r.IsError {
		t.Fatalf("patch_layout: %s", resultText(r))
	}

	snap, _ := svc.Snapshot("s1")
	if _, ok := snap.Layout.Nodes["row"]; !ok {
		t.Errorf("nodes = %v", snap.Layout.Nodes)
	}
}

func TestBeginStream_Validation(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "begin_stream", map[string]interface{}{"session": "s1"})
	if !r.IsError {
		t.Error("missing version should be a tool error")
	}

	r = callTool(t, srv, "begin_stream", map[string]interface{}{
		"session": "s1", "version": "1.0", "state": `not json`,
	})
	if !r.IsError {
		t.Error("malformed state should be a tool error")
	}
}

func TestBeginStream_DuplicateSession(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "begin_stream", map[string]interface{}{"session": "dup", "version": "1.0"})
	r := callTool(t, srv, "begin_stream", map[string]interface{}{"session": "dup", "version": "1.0"})
	if !r.IsError {
		t.Error("duplicate session should be a tool error")
	}
}

func TestToolsOnUnknownSession(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "update_state", map[string]interface{}{
		"session": "ghost", "state": `{}`,
	})
	if !r.IsError {
		t.Error("unknown session should be a tool error")
	}
	r = callTool(t, srv, "get_snapshot", map[string]interface{}{"session": "ghost"})
	if !r.IsError {
		t.Error("unknown session should be a tool error")
	}
}

func TestGetStreamContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_stream_contract", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"streamHeader", "layoutChunk", "layoutRoot", "stateUpdate"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
