// Package natsx connects to NATS JetStream, or starts an embedded
// JetStream-enabled server when no external one is configured.
package natsx

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EmbeddedURL in configuration asks for an in-process server.
const EmbeddedURL = "embedded"

// StartEmbedded runs a JetStream server on a random local port, persisting
// streams under storeDir.
func StartEmbedded(storeDir string) (*server.Server, error) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start")
	}
	return ns, nil
}

func Dial(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("siteflow"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

func JetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return js, nil
}

// Connect dials url and returns the connection with its JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := Dial(url)
	if err != nil {
		return nil, nil, err
	}
	js, err := JetStream(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}
