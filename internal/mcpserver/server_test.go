package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/domain"
	"siteflow/internal/orchestrator"
	"siteflow/internal/store"
	"siteflow/internal/tools"
	"siteflow/internal/tools/builtin"
)

func setup(t *testing.T) *mcp.ClientSession {
	t.Helper()
	reg := tools.NewRegistry()
	builtin.Register(reg)
	srv := New(orchestrator.New(store.NewMemory(), reg))

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// call returns the text content of a tool result and whether it was an error.
func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text, result.IsError
}

func TestToolsAreListed(t *testing.T) {
	session := setup(t)
	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"chat", "list_projects", "get_project", "delete_projects"}, names)
}

func TestChatThenProjectTools(t *testing.T) {
	session := setup(t)

	text, isErr := call(t, session, "chat", map[string]any{"message": "analyze terrain at 35.067482, -101.395466"})
	require.False(t, isErr, text)
	var resp domain.Response
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.True(t, resp.Success)
	name := resp.ProjectName

	text, isErr = call(t, session, "list_projects", map[string]any{"pattern": "wind"})
	require.False(t, isErr, text)
	var list []domain.ProjectContext
	require.NoError(t, json.Unmarshal([]byte(text), &list))
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0].ProjectName)

	text, isErr = call(t, session, "get_project", map[string]any{"name": name})
	require.False(t, isErr, text)
	var pc domain.ProjectContext
	require.NoError(t, json.Unmarshal([]byte(text), &pc))
	assert.NotNil(t, pc.TerrainResults)

	text, isErr = call(t, session, "delete_projects", map[string]any{"pattern": "wind"})
	require.False(t, isErr, text)
	var dry domain.BulkDeleteResult
	require.NoError(t, json.Unmarshal([]byte(text), &dry))
	assert.True(t, dry.RequiresConfirmation)

	text, isErr = call(t, session, "delete_projects", map[string]any{"pattern": "wind", "confirm": true})
	require.False(t, isErr, text)
	var done domain.BulkDeleteResult
	require.NoError(t, json.Unmarshal([]byte(text), &done))
	assert.Equal(t, 1, done.DeletedCount)

	text, isErr = call(t, session, "get_project", map[string]any{"name": name})
	assert.True(t, isErr)
	assert.Contains(t, text, "not found")
}

func TestChatFailureIsToolError(t *testing.T) {
	session := setup(t)
	text, isErr := call(t, session, "chat", map[string]any{"message": "build wellbore trajectory"})
	assert.True(t, isErr)
	assert.Contains(t, text, "well_id")

	_, isErr = call(t, session, "chat", map[string]any{"message": "  "})
	assert.True(t, isErr)
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	err := Serve(context.Background(), mcp.NewServer(&mcp.Implementation{Name: "x"}, nil), "carrier-pigeon", "", nil)
	assert.Error(t, err)
}
