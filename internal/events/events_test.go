package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"siteflow/internal/db"
	"siteflow/internal/domain"
	"siteflow/internal/migrate"
	"siteflow/internal/natsx"
)

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestWriterAppendAndTail(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	w := Writer{DB: conn, Now: fixedNow}
	ctx := context.Background()
	for i, p := range []string{"alpha", "beta", "alpha"} {
		if err := w.Append(ctx, TypeContextSaved, p, "req-1", Payload{"n": i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Append(ctx, TypeToolFailed, "", "", nil); err != nil {
		t.Fatalf("append without project: %v", err)
	}

	all, err := w.Tail(ctx, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].ProjectName != "alpha" || all[3].Type != TypeToolFailed {
		t.Fatalf("unexpected tail: %+v", all)
	}
	if all[3].Payload != "{}" {
		t.Fatalf("expected empty payload object, got %s", all[3].Payload)
	}
	if !all[0].TS.Equal(fixedNow()) {
		t.Fatalf("timestamp not preserved: %v", all[0].TS)
	}

	alpha, err := w.Tail(ctx, 1, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 1 || alpha[0].Payload != `{"n":2}` {
		t.Fatalf("expected latest alpha event, got %+v", alpha)
	}
}

func TestTailEmptyEncodesAsArray(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	w := Writer{DB: conn, Now: fixedNow}

	got, err := w.Tail(context.Background(), 10, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(map[string]any{"events": got})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"events":[]}` {
		t.Fatalf("expected empty array, got %s", b)
	}
}

type failing struct{}

func (failing) Append(context.Context, string, string, string, Payload) error {
	return errors.New("down")
}

func TestMultiJoinsErrors(t *testing.T) {
	var got []string
	rec := sinkFunc(func(evtType string) { got = append(got, evtType) })
	err := Multi{failing{}, rec, Nop{}}.Append(context.Background(), TypeProjectDeleted, "p", "", nil)
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("later sinks must still receive the event")
	}
}

type sinkFunc func(string)

func (f sinkFunc) Append(_ context.Context, evtType, _, _ string, _ Payload) error {
	f(evtType)
	return nil
}

func TestNATSPublishes(t *testing.T) {
	srv, err := natsx.StartEmbedded(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown()
	nc, _, err := natsx.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("siteflow.events.>")
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}
	pub := NATS{Conn: nc, Prefix: "siteflow.events", Now: fixedNow}
	if err := pub.Append(context.Background(), TypeContextSaved, "alpha", "req-9", Payload{"step": "terrain"}); err != nil {
		t.Fatal(err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("no message: %v", err)
	}
	if msg.Subject != "siteflow.events.context.saved" {
		t.Fatalf("unexpected subject %s", msg.Subject)
	}
	var e domain.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		t.Fatal(err)
	}
	if e.ProjectName != "alpha" || e.RequestID != "req-9" || e.Payload != `{"step":"terrain"}` {
		t.Fatalf("unexpected event %+v", e)
	}
}
