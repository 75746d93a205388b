package transcript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/webconsole/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(context.Background(), filepath.Join(t.TempDir(), "transcript.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
	return database
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database := openTestDB(t)

	if err := RunMigrations(context.Background(), database.SQL()); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var version string
	if err := database.SQL().QueryRow(`SELECT value FROM _meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read schema version error = %v", err)
	}
	if version != "3" {
		t.Fatalf("schema version = %s, want 3", version)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("Open(\"\") error = nil")
	}
}

func TestRecorderWritesSessionInOrder(t *testing.T) {
	database := openTestDB(t)
	state := session.New()
	rec := NewRecorder(database, state.ID(), nil)
	if err := rec.Start(context.Background(), time.Now()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state.OnEvent(rec.Observe)

	state.AppendToLast("Hello")
	state.AppendToLast(", world")
	id := state.CreateRequest("age?", session.TagInteger)
	state.Submit(id, "30")
	state.AppendLatex("x^2", false)
	state.MarkFinished()
	rec.Close()

	entries, err := rec.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	want := []struct {
		kind, inputID, body string
	}{
		{"text", "", "Hello, world"},
		{"input", "input_1", "age?"},
		{"text", "input_1", "30"},
		{"latex_inline", "", "x^2"},
	}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d: %+v", len(entries), len(want), entries)
	}
	for i, w := range want {
		e := entries[i]
		if e.Seq != i || e.Kind != w.kind || e.InputID != w.inputID || e.Body != w.body {
			t.Fatalf("entries[%d] = %+v, want %+v", i, e, w)
		}
	}

	run, err := NewRepo(database.SQL()).GetRun(context.Background(), state.ID())
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run == nil || run.FinishedAt.IsZero() {
		t.Fatalf("run = %+v, want finished", run)
	}
	if rec.Dropped() != 0 {
		t.Fatalf("Dropped() = %d", rec.Dropped())
	}
}

func TestRecorderKeepsNewestBodyWhenEventsArriveLate(t *testing.T) {
	database := openTestDB(t)
	rec := NewRecorder(database, "run-1", nil)
	if err := rec.Start(context.Background(), time.Now()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The program appended to the answer line before the gateway's
	// append event reached the recorder.
	rec.Observe(session.Event{Kind: session.EventLineUpdated, Version: 5, Seq: 1, Line: session.Line{Body: "30x"}})
	rec.Observe(session.Event{Kind: session.EventLineAppended, Version: 4, Seq: 1, RequestID: "input_1", Line: session.Line{Body: "30"}})
	rec.Close()

	entries, err := rec.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want one", entries)
	}
	if e := entries[0]; e.Body != "30x" || e.Version != 5 || e.InputID != "input_1" {
		t.Fatalf("entry = %+v, want body 30x at version 5 for input_1", e)
	}
}

func TestRecorderPrintRightAfterRead(t *testing.T) {
	for i := 0; i < 50; i++ {
		database := openTestDB(t)
		state := session.New()
		rec := NewRecorder(database, state.ID(), nil)
		if err := rec.Start(context.Background(), time.Now()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		state.OnEvent(rec.Observe)

		id := state.CreateRequest("age?", session.TagInteger)
		done := make(chan struct{})
		go func() {
			defer close(done)
			state.Await(context.Background(), id)
			state.AppendToLast("x")
		}()
		state.Submit(id, "30")
		<-done
		rec.Close()

		entries, err := rec.Entries(context.Background())
		if err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if len(entries) != 2 || entries[1].Body != "30x" {
			t.Fatalf("iteration %d: entries = %+v, want answer line 30x", i, entries)
		}
	}
}

func TestRecorderCloseIsSafeTwiceAndAfterwardsIgnoresEvents(t *testing.T) {
	database := openTestDB(t)
	rec := NewRecorder(database, "run-1", nil)
	if err := rec.Start(context.Background(), time.Now()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.Close()
	rec.Close()
	rec.Observe(session.Event{Kind: session.EventLineAppended, Line: session.Line{Body: "late"}})

	entries, err := rec.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v, want none", entries)
	}
}

func TestGetRunMissing(t *testing.T) {
	database := openTestDB(t)
	run, err := NewRepo(database.SQL()).GetRun(context.Background(), "nope")
	if err != nil || run != nil {
		t.Fatalf("GetRun() = %+v, %v; want nil, nil", run, err)
	}
}
