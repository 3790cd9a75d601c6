package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"siteflow/internal/domain"
	"siteflow/internal/orchestrator"
	"siteflow/internal/store"
)

// Tools holds the handlers behind each MCP tool.
type Tools struct {
	Orchestrator *orchestrator.Orchestrator
}

type ChatInput struct {
	Message     string `json:"message" jsonschema:"The request, for example: analyze terrain at 35.067482, -101.395466"`
	ProjectName string `json:"project_name,omitempty" jsonschema:"Active project used when the message names none"`
}

type ListProjectsInput struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"Case-insensitive substring of the project name"`
}

type GetProjectInput struct {
	Name string `json:"name" jsonschema:"Exact project name"`
}

type DeleteProjectsInput struct {
	Pattern string `json:"pattern" jsonschema:"Case-insensitive substring of the project names to delete"`
	Confirm bool   `json:"confirm,omitempty" jsonschema:"Delete the matches instead of only listing them"`
}

func (t *Tools) Chat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Message) == "" {
		return toolError("A message is required"), nil, nil
	}
	resp := t.Orchestrator.Handle(ctx, orchestrator.Request{
		Message:     input.Message,
		ProjectName: input.ProjectName,
	})
	res, _, err := toolJSON(resp)
	if err == nil && !resp.Success {
		res.IsError = true
	}
	return res, nil, err
}

func (t *Tools) ListProjects(ctx context.Context, _ *mcp.CallToolRequest, input ListProjectsInput) (*mcp.CallToolResult, any, error) {
	projects, err := t.Orchestrator.Store.FindByPartialName(ctx, input.Pattern)
	if err != nil {
		return toolError("Failed to list projects: %v", err), nil, nil
	}
	if projects == nil {
		projects = []domain.ProjectContext{}
	}
	return toolJSON(projects)
}

func (t *Tools) GetProject(ctx context.Context, _ *mcp.CallToolRequest, input GetProjectInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolError("Project name is required"), nil, nil
	}
	pc, err := t.Orchestrator.Store.Get(ctx, input.Name)
	if errors.Is(err, store.ErrNotFound) {
		return toolError("Project %s not found", input.Name), nil, nil
	}
	if err != nil {
		return toolError("Failed to load project %s: %v", input.Name, err), nil, nil
	}
	return toolJSON(pc)
}

func (t *Tools) DeleteProjects(ctx context.Context, _ *mcp.CallToolRequest, input DeleteProjectsInput) (*mcp.CallToolResult, any, error) {
	res := t.Orchestrator.BulkDelete(ctx, input.Pattern, input.Confirm)
	out, _, err := toolJSON(res)
	if err == nil && !res.Success {
		out.IsError = true
	}
	return out, nil, err
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
