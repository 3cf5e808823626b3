package surfaceservice

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/journal"
	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/testutil"
)

func newService(t *testing.T) (*Service, *journal.DB) {
	t.Helper()
	db := testutil.TestJournal(t)
	svc := NewService(testutil.TestCatalog(t), db, nil, slog.New(slog.DiscardHandler))
	return svc, db
}

func ingest(t *testing.T, svc *Service, sessionID string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if _, err := svc.Ingest(sessionID, []byte(line)); err != nil {
			t.Fatalf("Ingest(%s): %v", line, err)
		}
	}
}

func TestCreateSession_Duplicate(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateSession("s1"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestIngest_UnknownSession(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Ingest("ghost", []byte(`{"kind":"streamHeader","version":"1.0"}`))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIngest_BuildsSnapshot(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	ingest(t, svc, "s1",
		`{"kind":"streamHeader","version":"1.0","state":{"user":{"name":"Alice"}}}`,
		`{"kind":"layoutChunk","nodes":[{"id":"greeting","type":"Text","properties":{"text":{"path":"user.name","format":"Welcome, {}!"}}}]}`,
	)

	snap, err := svc.Ingest("s1", []byte(`{"kind":"layoutRoot","rootId":"greeting"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Ready {
		t.Error("snapshot not ready after full stream")
	}
	if snap.Version != "1.0" {
		t.Errorf("version = %q", snap.Version)
	}

	ready, err := svc.SessionReady("s1")
	if err != nil || !ready {
		t.Errorf("SessionReady = %v, %v", ready, err)
	}
}

func TestIngest_MalformedLineJournaledAndReported(t *testing.T) {
	svc, db := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Ingest("s1", []byte(`not json at all`))
	if err == nil {
		t.Fatal("expected decode error")
	}

	// Journaled before decoding: the transcript is faithful to what arrived.
	lines, jerr := db.Lines("s1")
	if jerr != nil {
		t.Fatal(jerr)
	}
	if len(lines) != 1 || lines[0] != "not json at all" {
		t.Errorf("journal lines = %v", lines)
	}

	// The session stays usable.
	ingest(t, svc, "s1", `{"kind":"streamHeader","version":"1.0"}`)
}

func TestResolved(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	ingest(t, svc, "s1",
		`{"kind":"streamHeader","version":"1.0","state":{"user":{"name":"Alice"}}}`,
		`{"kind":"layoutChunk","nodes":[{"id":"greeting","type":"Text","properties":{"text":{"path":"user.name","format":"Welcome, {}!"},"visible":true}}]}`,
		`{"kind":"layoutRoot","rootId":"greeting"}`,
	)

	resolved, err := svc.Resolved("s1")
	if err != nil {
		t.Fatal(err)
	}
	props := resolved["greeting"]
	if props["text"] != "Welcome, Alice!" {
		t.Errorf("text = %v, want Welcome, Alice!", props["text"])
	}
	if props["visible"] != true {
		t.Errorf("visible = %v", props["visible"])
	}
}

func TestSession_RebuiltFromJournal(t *testing.T) {
	db := testutil.TestJournal(t)
	cat := testutil.TestCatalog(t)
	logger := slog.New(slog.DiscardHandler)

	first := NewService(cat, db, nil, logger)
	if err := first.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	ingest(t, first, "s1",
		`{"kind":"streamHeader","version":"1.0","state":{"user":{"name":"Alice"}}}`,
		`{"kind":"layoutChunk","nodes":[{"id":"root","type":"Text"}]}`,
		`{"kind":"layoutRoot","rootId":"root"}`,
	)

	// A fresh service over the same journal replays the session on first
	// access, as after a process restart.
	second := NewService(cat, db, nil, logger)
	snap, err := second.Snapshot("s1")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Ready {
		t.Error("rebuilt session not ready")
	}
	user, _ := snap.State["user"].(map[string]any)
	if user["name"] != "Alice" {
		t.Errorf("rebuilt state = %v", snap.State)
	}
}

func TestSession_RebuildWarnsOnCatalogDrift(t *testing.T) {
	db := testutil.TestJournal(t)

	first := NewService(testutil.TestCatalog(t), db, nil, slog.New(slog.DiscardHandler))
	if err := first.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	ingest(t, first, "s1", `{"kind":"streamHeader","version":"1.0"}`)

	// A restart replays under whatever catalog the service now holds; a
	// mismatch with the recorded reference is surfaced in the log.
	swapped, err := catalog.Parse([]byte(`{"version":"2.0","widgets":{"Badge":{}}}`))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	second := NewService(swapped, db, nil, slog.New(slog.NewJSONHandler(&buf, nil)))
	if _, err := second.Snapshot("s1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "different catalog") {
		t.Errorf("no catalog drift warning in log: %s", buf.String())
	}

	// Same catalog, no warning.
	buf.Reset()
	third := NewService(testutil.TestCatalog(t), db, nil, slog.New(slog.NewJSONHandler(&buf, nil)))
	if _, err := third.Snapshot("s1"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "different catalog") {
		t.Errorf("unexpected drift warning: %s", buf.String())
	}
}

func TestSetCatalog_LiveSessionsKeepTheirs(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	before := svc.CatalogReference()

	replacement, err := catalog.Parse([]byte(`{"version":"2.0","widgets":{"Badge":{}}}`))
	if err != nil {
		t.Fatal(err)
	}
	svc.SetCatalog(replacement)
	if svc.CatalogReference() == before {
		t.Error("new-session catalog not swapped")
	}

	// The live session still works against its original catalog.
	ingest(t, svc, "s1", `{"kind":"streamHeader","version":"1.0"}`)
}

func TestRecordEvent(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.CreateSession("s1"); err != nil {
		t.Fatal(err)
	}
	ev := protocol.NewUserEvent("submit-button", "press", map[string]any{"ok": true})
	if ev.Timestamp.After(time.Now().Add(time.Second)) {
		t.Error("event timestamp in the future")
	}
	if err := svc.RecordEvent("s1", ev); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordEvent("ghost", ev); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	svc, _ := newService(t)
	for _, id := range []string{"a", "b"} {
		if err := svc.CreateSession(id); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := svc.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("sessions = %d, want 2", len(rows))
	}
}
