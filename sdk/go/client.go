package siteflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal siteflow HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// ActionButton is a follow-up query offered with an artifact.
type ActionButton struct {
	Label   string `json:"label"`
	Query   string `json:"query"`
	Icon    string `json:"icon"`
	Primary bool   `json:"primary"`
}

// Artifact is a typed result payload.
type Artifact struct {
	Type     string         `json:"type"`
	Title    string         `json:"title,omitempty"`
	Subtitle string         `json:"subtitle,omitempty"`
	Data     map[string]any `json:"data"`
	Actions  []ActionButton `json:"actions"`
}

// ThoughtStep traces one stage of a chat request.
type ThoughtStep struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Status    string `json:"status"`
}

// Response is the chat response envelope.
type Response struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Intent       string        `json:"intent,omitempty"`
	ProjectName  string        `json:"project_name,omitempty"`
	Artifacts    []Artifact    `json:"artifacts"`
	ThoughtSteps []ThoughtStep `json:"thought_steps,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// Project represents a stored project context (partial).
type Project struct {
	ProjectName string `json:"project_name"`
	Coordinates *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates,omitempty"`
	TerrainResults    map[string]any `json:"terrain_results,omitempty"`
	LayoutResults     map[string]any `json:"layout_results,omitempty"`
	SimulationResults map[string]any `json:"simulation_results,omitempty"`
	ReportResults     map[string]any `json:"report_results,omitempty"`
	UpdatedAt         string         `json:"updated_at"`
}

// FailedProject names a project whose delete failed.
type FailedProject struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BulkDeleteResult reports a bulk delete or its dry run.
type BulkDeleteResult struct {
	Success              bool            `json:"success"`
	DeletedCount         int             `json:"deleted_count"`
	DeletedProjects      []string        `json:"deleted_projects"`
	FailedProjects       []FailedProject `json:"failed_projects"`
	MatchedProjects      []string        `json:"matched_projects"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Message              string          `json:"message"`
}

// Event represents a log entry.
type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts"`
	Type        string `json:"type"`
	ProjectName string `json:"project_name,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Payload     string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "v0/health", nil, nil)
}

// Chat sends a message. projectName may be empty.
func (c *Client) Chat(ctx context.Context, message, projectName string) (Response, error) {
	body := map[string]any{"message": message}
	if projectName != "" {
		body["project_name"] = projectName
	}
	var resp Response
	err := c.do(ctx, http.MethodPost, "v0/chat", body, &resp)
	return resp, err
}

// ListProjects returns projects whose name contains pattern.
func (c *Client) ListProjects(ctx context.Context, pattern string) ([]Project, error) {
	endpoint := "v0/projects"
	if pattern != "" {
		endpoint += "?pattern=" + url.QueryEscape(pattern)
	}
	var resp struct {
		Projects []Project `json:"projects"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Projects, err
}

// GetProject fetches a project by exact name.
func (c *Client) GetProject(ctx context.Context, name string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "v0/projects/"+url.PathEscape(name), nil, &resp)
	return resp, err
}

// DeleteProject deletes a project by exact name.
func (c *Client) DeleteProject(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "v0/projects/"+url.PathEscape(name), nil, nil)
}

// BulkDelete deletes, or with confirm=false lists, projects matching pattern.
func (c *Client) BulkDelete(ctx context.Context, pattern string, confirm bool) (BulkDeleteResult, error) {
	body := map[string]any{"pattern": pattern, "confirm": confirm}
	var resp BulkDeleteResult
	err := c.do(ctx, http.MethodPost, "v0/projects/bulk-delete", body, &resp)
	return resp, err
}

// Events returns recent events, oldest first. projectName may be empty.
func (c *Client) Events(ctx context.Context, limit int, projectName string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if projectName != "" {
		q.Set("project", projectName)
	}
	endpoint := "v0/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Events, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
