package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"siteflow/internal/natsx"
	"siteflow/internal/store"
	"siteflow/internal/store/storetest"
)

func TestKVConformance(t *testing.T) {
	ctx := context.Background()
	srv, err := natsx.StartEmbedded(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	nc, js, err := natsx.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	kv, err := store.NewKV(ctx, js, "test_contexts")
	require.NoError(t, err)
	storetest.Run(t, kv)
}
