package natsx

import (
	"testing"
	"time"
)

func TestEmbeddedRoundTrip(t *testing.T) {
	srv, err := StartEmbedded(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown()

	nc, js, err := Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	if js == nil {
		t.Fatal("expected JetStream context")
	}
	sub, err := nc.SubscribeSync("ping")
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Publish("ping", []byte("pong")); err != nil {
		t.Fatal(err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil || string(msg.Data) != "pong" {
		t.Fatalf("round trip failed: %v", err)
	}
}

func TestDialFailsFast(t *testing.T) {
	if _, err := Dial("nats://127.0.0.1:1"); err == nil {
		t.Fatal("expected connection error")
	}
}
