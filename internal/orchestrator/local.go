package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"siteflow/internal/domain"
	"siteflow/internal/store"
	"siteflow/internal/validate"
)

type intentLister interface {
	Intents() []domain.IntentType
}

func (o *Orchestrator) systemStatus(ctx context.Context, r *run) domain.Response {
	data := map[string]any{"store": "ok"}
	projects, err := o.Store.FindByPartialName(ctx, "")
	if err != nil {
		data["store"] = err.Error()
	} else {
		data["projects"] = len(projects)
	}
	if l, ok := o.Tools.(intentLister); ok {
		data["tools"] = l.Intents()
	}
	msg := "siteflow is online. I can analyze terrain, optimize turbine layouts, simulate wakes and generate reports for wind farm sites, and build wellbore trajectories, calculate porosity and map horizons for wells."
	if err != nil {
		msg += " The project store is currently unavailable."
	}
	return r.respond(domain.Response{
		Success: true,
		Message: msg,
		Artifacts: []domain.Artifact{{
			Type:    ArtifactType(domain.IntentSystemStatus),
			Title:   "System Status",
			Data:    data,
			Actions: Actions(domain.IntentSystemStatus, "", nil),
		}},
	})
}

func projectSummary(pc domain.ProjectContext) map[string]any {
	steps := make([]string, 0, 4)
	for _, s := range pc.CompletedSteps() {
		steps = append(steps, string(s))
	}
	return map[string]any{
		"project_name":    pc.ProjectName,
		"completed_steps": steps,
		"next_step":       string(pc.NextStep()),
		"updated_at":      pc.UpdatedAt,
	}
}

func (o *Orchestrator) projectList(ctx context.Context, r *run) domain.Response {
	projects, err := o.Store.FindByPartialName(ctx, "")
	if err != nil {
		r.step("processing", "Listing projects", err.Error(), "error")
		return r.fail(fmt.Sprintf("Could not list projects: %v", err))
	}
	r.step("processing", "Listing projects", fmt.Sprintf("%d found", len(projects)), "complete")
	items := make([]map[string]any, 0, len(projects))
	for _, pc := range projects {
		items = append(items, projectSummary(pc))
	}
	msg := "You have no projects yet. Start with: analyze terrain at <latitude>, <longitude>."
	if len(projects) > 0 {
		msg = fmt.Sprintf("You have %d project(s).", len(projects))
	}
	return r.respond(domain.Response{
		Success: true,
		Message: msg,
		Artifacts: []domain.Artifact{{
			Type:    ArtifactType(domain.IntentProjectList),
			Title:   "Projects",
			Data:    map[string]any{"count": len(projects), "projects": items},
			Actions: Actions(domain.IntentProjectList, "", nil),
		}},
	})
}

func (o *Orchestrator) projectDashboard(ctx context.Context, r *run, req Request) domain.Response {
	name := projectNameFor(r.intent, req)
	if name == "" {
		return o.projectList(ctx, r)
	}
	pc, err := o.Store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		r.step("processing", "Loading project context", name+" not found", "error")
		resp := r.fail(fmt.Sprintf("Project %s was not found. Say \"list projects\" to see what exists.", name))
		resp.ProjectName = name
		return resp
	}
	if err != nil {
		r.step("processing", "Loading project context", err.Error(), "error")
		return r.fail(fmt.Sprintf("Could not load project %s: %v", name, err))
	}
	r.step("processing", "Loading project context", name, "complete")

	data := projectSummary(pc)
	if pc.Coordinates != nil {
		data["coordinates"] = pc.Coordinates
	}
	for key, results := range map[string]map[string]any{
		"terrain":    pc.TerrainResults,
		"layout":     pc.LayoutResults,
		"simulation": pc.SimulationResults,
		"report":     pc.ReportResults,
	} {
		if results != nil {
			data[key] = results
		}
	}
	msg := fmt.Sprintf("Project %s: completed %s.\n\n%s", name, stepList(pc.CompletedSteps()), NextStepHint(pc))
	return r.respond(domain.Response{
		Success:     true,
		Message:     msg,
		ProjectName: name,
		Artifacts: []domain.Artifact{{
			Type:     ArtifactType(domain.IntentProjectDashboard),
			Title:    "Project Dashboard",
			Subtitle: name,
			Data:     data,
			Actions:  dashboardActions(pc),
		}},
	})
}

// dashboardActions offers the next workflow step as the primary action
// alongside the dashboard refresh.
func dashboardActions(pc domain.ProjectContext) []domain.ActionButton {
	name := pc.ProjectName
	var next *domain.ActionButton
	switch pc.NextStep() {
	case domain.StepLayout:
		next = &domain.ActionButton{Label: "Optimize Layout", Query: forProject("optimize layout", name), Icon: "settings"}
	case domain.StepSimulation:
		next = &domain.ActionButton{Label: "Run Wake Simulation", Query: forProject("run wake simulation", name), Icon: "refresh"}
	case domain.StepReport:
		next = &domain.ActionButton{Label: "Generate Report", Query: forProject("generate report", name), Icon: "file"}
	}
	if next == nil {
		return []domain.ActionButton{dashboardButton(name, true)}
	}
	next.Primary = true
	return []domain.ActionButton{*next, dashboardButton(name, false)}
}

func (o *Orchestrator) bulkDeleteChat(ctx context.Context, r *run) domain.Response {
	if res := validate.Validate(r.intent, nil); !res.IsValid {
		r.step("analysis", "Validating parameters", "missing: "+strings.Join(res.MissingRequired, ", "), "error")
		return r.fail(validate.FormatError(res, r.intent.Type, nil))
	}
	pattern := r.intent.Param("pattern")
	confirm := r.intent.Param("confirm") == "true"
	result := o.bulkDelete(ctx, r, pattern, confirm)
	params := map[string]string{"pattern": pattern}
	if confirm {
		params["confirm"] = "true"
	}
	return r.respond(domain.Response{
		Success: result.Success,
		Message: result.Message,
		Artifacts: []domain.Artifact{{
			Type:     ArtifactType(domain.IntentBulkDelete),
			Title:    "Bulk Delete",
			Subtitle: pattern,
			Data: map[string]any{
				"deleted_count":         result.DeletedCount,
				"deleted_projects":      result.DeletedProjects,
				"failed_projects":       result.FailedProjects,
				"matched_projects":      result.MatchedProjects,
				"requires_confirmation": result.RequiresConfirmation,
			},
			Actions: Actions(domain.IntentBulkDelete, "", params),
		}},
	})
}
