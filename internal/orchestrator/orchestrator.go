// Package orchestrator ties intent classification, parameter validation,
// project context and tool dispatch into one request/response cycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siteflow/internal/domain"
	"siteflow/internal/events"
	"siteflow/internal/intent"
	"siteflow/internal/store"
	"siteflow/internal/tools"
	"siteflow/internal/validate"
)

type Classifier interface {
	Classify(message string) domain.Intent
}

type Orchestrator struct {
	Classifier Classifier
	Store      store.Store
	Tools      tools.Handler
	Events     events.Sink
	Logger     *zap.Logger
	Now        func() time.Time
	NewID      func() string
	// BulkConcurrency caps the parallel deletes of one bulk delete.
	BulkConcurrency int
}

func New(st store.Store, th tools.Handler) *Orchestrator {
	return &Orchestrator{
		Classifier:      intent.New(),
		Store:           st,
		Tools:           th,
		Events:          events.Nop{},
		Logger:          zap.NewNop(),
		Now:             time.Now,
		NewID:           uuid.NewString,
		BulkConcurrency: 8,
	}
}

type Request struct {
	Message string `json:"message"`
	// ProjectName is the caller's active project, used when the message
	// does not name one.
	ProjectName string `json:"project_name,omitempty"`
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// run carries the per-request state through the pipeline stages.
type run struct {
	o      *Orchestrator
	id     string
	log    *zap.Logger
	intent domain.Intent
	steps  []domain.ThoughtStep
}

func (r *run) step(typ, title, summary, status string) {
	r.steps = append(r.steps, domain.ThoughtStep{
		ID:        r.o.newID(),
		Type:      typ,
		Timestamp: r.o.now().UTC(),
		Title:     title,
		Summary:   summary,
		Status:    status,
	})
}

func (r *run) respond(resp domain.Response) domain.Response {
	resp.Intent = r.intent.Type
	if resp.Artifacts == nil {
		resp.Artifacts = []domain.Artifact{}
	}
	status := "complete"
	if !resp.Success {
		status = "error"
	}
	r.step("completion", "Response ready", firstLine(resp.Message), status)
	resp.ThoughtSteps = r.steps
	return resp
}

func (r *run) fail(msg string) domain.Response {
	return r.respond(domain.Response{Success: false, Message: msg})
}

// Handle processes one chat message. Every outcome, including validation
// and tool failures, is returned as a Response.
func (o *Orchestrator) Handle(ctx context.Context, req Request) domain.Response {
	started := o.now()
	r := &run{o: o, id: o.newID()}
	r.log = o.logger().With(zap.String("request_id", r.id))

	resp := o.handle(ctx, r, req)

	r.log.Info("chat handled",
		zap.String("intent", string(resp.Intent)),
		zap.String("project", resp.ProjectName),
		zap.Bool("success", resp.Success),
		zap.Int("warnings", len(resp.Warnings)),
		zap.Duration("elapsed", o.now().Sub(started)),
	)
	return resp
}

func (o *Orchestrator) handle(ctx context.Context, r *run, req Request) domain.Response {
	// Classify
	r.intent = o.Classifier.Classify(req.Message)
	if r.intent.Parameters == nil {
		r.intent.Parameters = map[string]string{}
	}
	r.step("analysis", "Intent classification",
		fmt.Sprintf("%s (confidence %.2f)", r.intent.Type, r.intent.Confidence), "complete")

	switch r.intent.Type {
	case domain.IntentUnknown:
		return r.respond(domain.Response{Success: true, Message: helpMessage, Artifacts: []domain.Artifact{}})
	case domain.IntentSystemStatus:
		return o.systemStatus(ctx, r)
	case domain.IntentProjectList:
		return o.projectList(ctx, r)
	case domain.IntentProjectDashboard:
		return o.projectDashboard(ctx, r, req)
	case domain.IntentBulkDelete:
		return o.bulkDeleteChat(ctx, r)
	}
	return o.runTool(ctx, r, req)
}

// runTool is the Resolve-Context, Validate, Dispatch, Persist, Respond
// pipeline for intents backed by a tool handler.
func (o *Orchestrator) runTool(ctx context.Context, r *run, req Request) domain.Response {
	in := r.intent
	workflow := isWorkflowIntent(in.Type)

	// Resolve-Context
	var pc *domain.ProjectContext
	name := ""
	if workflow {
		name = projectNameFor(in, req)
		if name == "" {
			name = coordinateProjectName(in.Parameters)
		}
		loaded, err := o.loadContext(ctx, name)
		if err != nil {
			r.step("processing", "Loading project context", err.Error(), "error")
			return r.fail(fmt.Sprintf("Could not load project %s: %v", name, err))
		}
		pc = loaded
		summary := "no saved context, starting fresh"
		if pc != nil {
			summary = "completed steps: " + stepList(pc.CompletedSteps())
		}
		if name != "" {
			r.step("processing", "Loading project context", name+": "+summary, "complete")
		}
	}

	// Validate
	res := validate.Validate(in, pc)
	if !res.IsValid {
		problems := append(append([]string{}, res.MissingRequired...), res.InvalidValues...)
		r.step("analysis", "Validating parameters", "problems: "+strings.Join(problems, ", "), "error")
		resp := r.fail(validate.FormatError(res, in.Type, pc))
		resp.ProjectName = name
		return resp
	}
	summary := "all required parameters present"
	if len(res.SatisfiedByContext) > 0 {
		summary = "from project context: " + strings.Join(res.SatisfiedByContext, ", ")
	}
	r.step("analysis", "Validating parameters", summary, "complete")
	params := validate.Resolve(in, pc)

	current := domain.ProjectContext{ProjectName: name}
	if pc != nil {
		current = *pc
	}

	// Dispatch
	label := intentLabel(in.Type)
	result, err := o.invoke(ctx, tools.Invocation{
		Intent:         in.Type,
		Parameters:     tools.Params(params),
		ProjectContext: current,
	})
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		r.step("processing", "Running "+label, err.Error(), "error")
		r.log.Warn("tool failed", zap.String("intent", string(in.Type)), zap.String("project", name), zap.Error(err))
		o.emit(ctx, r, events.TypeToolFailed, name, events.Payload{"intent": in.Type, "error": err.Error()})
		resp := r.fail(fmt.Sprintf("The %s tool failed: %v", label, err))
		resp.ProjectName = name
		return resp
	}
	r.step("processing", "Running "+label, "tool returned results", "complete")

	// Persist
	var warnings []string
	if workflow && name != "" {
		current.Merge(contextUpdate(in.Type, name, params, result.Data, o.now().UTC()))
		if err := o.Store.Save(ctx, current); err != nil {
			r.step("processing", "Saving project context", err.Error(), "error")
			r.log.Error("save context failed", zap.String("project", name), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("Results were not saved to project %s (%v); the next step may not find them.", name, err))
		} else {
			r.step("processing", "Saving project context", name, "complete")
			o.emit(ctx, r, events.TypeContextSaved, name, events.Payload{
				"intent": in.Type,
				"steps":  current.CompletedSteps(),
			})
		}
	}

	// Respond
	msg := toolSummary(in.Type, name, params, result.Data)
	if workflow {
		msg += "\n\n" + NextStepHint(current)
	}
	if len(warnings) > 0 {
		msg += "\n\nWarning: " + strings.Join(warnings, " ")
	}
	return r.respond(domain.Response{
		Success:     true,
		Message:     msg,
		ProjectName: name,
		Artifacts:   []domain.Artifact{toolArtifact(in.Type, name, params, result.Data)},
		Warnings:    warnings,
	})
}

// loadContext returns nil without error when the project has no saved
// context yet.
// invoke calls the tool handler, turning a panic into an error so a broken
// handler fails one request instead of the process.
func (o *Orchestrator) invoke(ctx context.Context, inv tools.Invocation) (res tools.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = tools.Result{}
			err = fmt.Errorf("tool panicked: %v", p)
		}
	}()
	return o.Tools.Invoke(ctx, inv)
}

func (o *Orchestrator) loadContext(ctx context.Context, name string) (*domain.ProjectContext, error) {
	if name == "" {
		return nil, nil
	}
	pc, err := o.Store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (o *Orchestrator) emit(ctx context.Context, r *run, evtType, project string, payload events.Payload) {
	if o.Events == nil {
		return
	}
	if err := o.Events.Append(ctx, evtType, project, r.id, payload); err != nil {
		r.log.Warn("event append failed", zap.String("type", evtType), zap.Error(err))
	}
}

func contextUpdate(t domain.IntentType, name string, params map[string]string, data map[string]any, now time.Time) domain.ProjectContext {
	u := domain.ProjectContext{ProjectName: name, UpdatedAt: now}
	if data == nil {
		data = map[string]any{}
	}
	switch t {
	case domain.IntentTerrainAnalysis:
		u.TerrainResults = data
		u.Coordinates = coordinatesOf(params)
	case domain.IntentLayoutOptimization:
		u.LayoutResults = data
		u.Coordinates = coordinatesOf(params)
	case domain.IntentWakeSimulation:
		u.SimulationResults = data
	case domain.IntentReportGeneration:
		u.ReportResults = data
	}
	return u
}

func isWorkflowIntent(t domain.IntentType) bool {
	switch t {
	case domain.IntentTerrainAnalysis, domain.IntentLayoutOptimization,
		domain.IntentWakeSimulation, domain.IntentReportGeneration:
		return true
	}
	return false
}

const helpMessage = `I didn't understand that request. Try one of:
- analyze terrain at 35.067482, -101.395466
- optimize layout for project <name>
- run wake simulation for project <name>
- generate report for project <name>
- build wellbore WELL-011
- calculate porosity for WELL-002
- show dashboard, list projects, delete projects matching <pattern>`

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func stepList(steps []domain.Step) string {
	if len(steps) == 0 {
		return "none"
	}
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}
