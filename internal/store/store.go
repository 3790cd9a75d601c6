// Package store persists ProjectContext records keyed by project name. Save
// overwrites the whole record; callers merge before saving.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"siteflow/internal/domain"
)

var (
	ErrNotFound    = errors.New("project context not found")
	ErrInvalidName = errors.New("project name is required")
)

// Store is the durable key-value namespace behind the orchestrator. There is
// no locking across requests: the last Save for a name wins.
type Store interface {
	Get(ctx context.Context, projectName string) (domain.ProjectContext, error)
	// FindByPartialName returns every context whose name contains pattern,
	// case-insensitively, ordered by name. An empty pattern matches all.
	FindByPartialName(ctx context.Context, pattern string) ([]domain.ProjectContext, error)
	Save(ctx context.Context, pc domain.ProjectContext) error
	// Delete is idempotent: removing an unknown name is not an error.
	Delete(ctx context.Context, projectName string) error
}

func matches(name, pattern string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

func sortByName(list []domain.ProjectContext) {
	sort.Slice(list, func(i, j int) bool { return list[i].ProjectName < list[j].ProjectName })
}

func encode(pc domain.ProjectContext) ([]byte, error) {
	if strings.TrimSpace(pc.ProjectName) == "" {
		return nil, ErrInvalidName
	}
	data, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("marshal project context %s: %w", pc.ProjectName, err)
	}
	return data, nil
}

func decode(name string, data []byte) (domain.ProjectContext, error) {
	var pc domain.ProjectContext
	if err := json.Unmarshal(data, &pc); err != nil {
		return pc, fmt.Errorf("decode project context %s: %w", name, err)
	}
	return pc, nil
}
