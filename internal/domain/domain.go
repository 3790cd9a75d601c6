package domain

import "time"

type IntentType string

const (
	IntentUnknown             IntentType = "unknown"
	IntentSystemStatus        IntentType = "system_status"
	IntentBulkDelete          IntentType = "bulk_delete"
	IntentProjectDashboard    IntentType = "project_dashboard"
	IntentProjectList         IntentType = "project_list"
	IntentWellboreTrajectory  IntentType = "wellbore_trajectory"
	IntentPorosityCalculation IntentType = "porosity_calculation"
	IntentHorizonSurface      IntentType = "horizon_surface"
	IntentReportGeneration    IntentType = "report_generation"
	IntentWakeSimulation      IntentType = "wake_simulation"
	IntentLayoutOptimization  IntentType = "layout_optimization"
	IntentTerrainAnalysis     IntentType = "terrain_analysis"
)

// Intent is the classified purpose of one chat message.
type Intent struct {
	Type       IntentType        `json:"type"`
	Confidence float64           `json:"confidence"`
	Parameters map[string]string `json:"parameters"`
}

// Param returns the named parameter or "".
func (i Intent) Param(name string) string {
	if i.Parameters == nil {
		return ""
	}
	return i.Parameters[name]
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProjectContext accumulates the outputs of the renewable workflow steps for one project.
type ProjectContext struct {
	ProjectName       string         `json:"project_name"`
	Coordinates       *Coordinates   `json:"coordinates,omitempty"`
	TerrainResults    map[string]any `json:"terrain_results,omitempty"`
	LayoutResults     map[string]any `json:"layout_results,omitempty"`
	SimulationResults map[string]any `json:"simulation_results,omitempty"`
	ReportResults     map[string]any `json:"report_results,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at" format:"date-time"`
}

// Merge copies every non-nil field of update into c. Fields already set on c
// are only ever replaced by a newer non-nil value, never cleared.
func (c *ProjectContext) Merge(update ProjectContext) {
	if c.ProjectName == "" {
		c.ProjectName = update.ProjectName
	}
	if update.Coordinates != nil {
		coords := *update.Coordinates
		c.Coordinates = &coords
	}
	if update.TerrainResults != nil {
		c.TerrainResults = update.TerrainResults
	}
	if update.LayoutResults != nil {
		c.LayoutResults = update.LayoutResults
	}
	if update.SimulationResults != nil {
		c.SimulationResults = update.SimulationResults
	}
	if update.ReportResults != nil {
		c.ReportResults = update.ReportResults
	}
	if update.UpdatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = update.UpdatedAt
	}
}

// Step is one stage of the renewable site workflow.
type Step string

const (
	StepTerrain    Step = "terrain"
	StepLayout     Step = "layout"
	StepSimulation Step = "simulation"
	StepReport     Step = "report"
)

// WorkflowSteps is the fixed order in which the workflow is expected to run.
var WorkflowSteps = []Step{StepTerrain, StepLayout, StepSimulation, StepReport}

// Has reports whether the context already holds output for step.
func (c ProjectContext) Has(step Step) bool {
	switch step {
	case StepTerrain:
		return c.TerrainResults != nil
	case StepLayout:
		return c.LayoutResults != nil
	case StepSimulation:
		return c.SimulationResults != nil
	case StepReport:
		return c.ReportResults != nil
	}
	return false
}

// NextStep returns the first workflow step without output, or "" when all ran.
func (c ProjectContext) NextStep() Step {
	for _, s := range WorkflowSteps {
		if !c.Has(s) {
			return s
		}
	}
	return ""
}

// CompletedSteps lists the steps with output in workflow order.
func (c ProjectContext) CompletedSteps() []Step {
	var done []Step
	for _, s := range WorkflowSteps {
		if c.Has(s) {
			done = append(done, s)
		}
	}
	return done
}

type ValidationResult struct {
	IsValid            bool     `json:"is_valid"`
	MissingRequired    []string `json:"missing_required"`
	InvalidValues      []string `json:"invalid_values"`
	SatisfiedByContext []string `json:"satisfied_by_context"`
}

type ActionButton struct {
	Label   string `json:"label"`
	Query   string `json:"query"`
	Icon    string `json:"icon"`
	Primary bool   `json:"primary"`
}

type Artifact struct {
	Type     string         `json:"type"`
	Title    string         `json:"title,omitempty"`
	Subtitle string         `json:"subtitle,omitempty"`
	Data     map[string]any `json:"data"`
	Actions  []ActionButton `json:"actions"`
}

type ThoughtStep struct {
	ID        string    `json:"id"`
	Type      string    `json:"type" enum:"analysis,processing,completion"`
	Timestamp time.Time `json:"timestamp" format:"date-time"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status" enum:"complete,pending,error"`
}

// Response is what a chat caller receives for every message, success or not.
type Response struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Intent       IntentType    `json:"intent,omitempty"`
	ProjectName  string        `json:"project_name,omitempty"`
	Artifacts    []Artifact    `json:"artifacts"`
	ThoughtSteps []ThoughtStep `json:"thought_steps,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

type FailedProject struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type BulkDeleteResult struct {
	Success              bool            `json:"success"`
	DeletedCount         int             `json:"deleted_count"`
	DeletedProjects      []string        `json:"deleted_projects"`
	FailedProjects       []FailedProject `json:"failed_projects"`
	MatchedProjects      []string        `json:"matched_projects"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Message              string          `json:"message"`
}

type Event struct {
	ID          int64     `json:"id"`
	TS          time.Time `json:"ts" format:"date-time"`
	Type        string    `json:"type"`
	ProjectName string    `json:"project_name,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Payload     string    `json:"payload_json"`
}
