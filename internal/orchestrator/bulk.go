package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"siteflow/internal/domain"
	"siteflow/internal/events"
)

// BulkDelete removes every project whose name contains pattern. Without
// confirm it only reports the matches. With confirm the deletes run
// concurrently and each one settles on its own: a failure never cancels the
// others and successful deletes are never rolled back.
func (o *Orchestrator) BulkDelete(ctx context.Context, pattern string, confirm bool) domain.BulkDeleteResult {
	r := &run{o: o, id: o.newID()}
	r.log = o.logger().With(zap.String("request_id", r.id))
	return o.bulkDelete(ctx, r, pattern, confirm)
}

func (o *Orchestrator) bulkDelete(ctx context.Context, r *run, pattern string, confirm bool) domain.BulkDeleteResult {
	res := domain.BulkDeleteResult{
		DeletedProjects: []string{},
		FailedProjects:  []domain.FailedProject{},
		MatchedProjects: []string{},
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		res.Message = "A name pattern is required to delete projects in bulk."
		return res
	}
	matches, err := o.Store.FindByPartialName(ctx, pattern)
	if err != nil {
		r.step("processing", "Finding matching projects", err.Error(), "error")
		res.Message = fmt.Sprintf("Could not search projects matching %q: %v", pattern, err)
		return res
	}
	for _, pc := range matches {
		res.MatchedProjects = append(res.MatchedProjects, pc.ProjectName)
	}
	r.step("processing", "Finding matching projects", fmt.Sprintf("%d match %q", len(matches), pattern), "complete")

	if len(matches) == 0 {
		res.Success = true
		res.Message = fmt.Sprintf("No projects match %q.", pattern)
		return res
	}
	if !confirm {
		res.Success = true
		res.RequiresConfirmation = true
		res.Message = fmt.Sprintf("Found %d project(s) matching %q: %s. Confirm to delete them; nothing has been deleted yet.",
			len(matches), pattern, strings.Join(res.MatchedProjects, ", "))
		return res
	}

	outcomes := make([]error, len(res.MatchedProjects))
	var g errgroup.Group
	limit := o.BulkConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, name := range res.MatchedProjects {
		g.Go(func() error {
			outcomes[i] = o.Store.Delete(ctx, name)
			// Never return the error: one failed delete must not affect the rest.
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range res.MatchedProjects {
		if err := outcomes[i]; err != nil {
			res.FailedProjects = append(res.FailedProjects, domain.FailedProject{Name: name, Error: err.Error()})
			r.log.Warn("project delete failed", zap.String("project", name), zap.Error(err))
			continue
		}
		res.DeletedProjects = append(res.DeletedProjects, name)
		o.emit(ctx, r, events.TypeProjectDeleted, name, events.Payload{"pattern": pattern})
	}
	res.DeletedCount = len(res.DeletedProjects)
	res.Success = len(res.FailedProjects) == 0
	if res.Success {
		res.Message = fmt.Sprintf("Deleted %d project(s) matching %q.", res.DeletedCount, pattern)
	} else {
		failed := make([]string, len(res.FailedProjects))
		for i, f := range res.FailedProjects {
			failed[i] = f.Name + " (" + f.Error + ")"
		}
		res.Message = fmt.Sprintf("Deleted %d of %d project(s) matching %q. Failed: %s.",
			res.DeletedCount, len(matches), pattern, strings.Join(failed, ", "))
	}
	status := "complete"
	if !res.Success {
		status = "error"
	}
	r.step("processing", "Deleting projects", res.Message, status)
	return res
}

// DeleteProject removes a single project by exact name. Deleting a project
// that does not exist is not an error.
func (o *Orchestrator) DeleteProject(ctx context.Context, name string) error {
	r := &run{o: o, id: o.newID()}
	r.log = o.logger().With(zap.String("request_id", r.id))
	if err := o.Store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	o.emit(ctx, r, events.TypeProjectDeleted, name, nil)
	return nil
}
