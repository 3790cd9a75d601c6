package orchestrator

import (
	"fmt"
	"strings"

	"siteflow/internal/domain"
	"siteflow/internal/tools"
)

var artifactTypes = map[domain.IntentType]string{
	domain.IntentTerrainAnalysis:     "wind_farm_terrain_analysis",
	domain.IntentLayoutOptimization:  "wind_farm_layout",
	domain.IntentWakeSimulation:      "wake_simulation",
	domain.IntentReportGeneration:    "wind_farm_report",
	domain.IntentWellboreTrajectory:  "wellbore_trajectory",
	domain.IntentPorosityCalculation: "porosity_analysis",
	domain.IntentHorizonSurface:      "horizon_surface",
	domain.IntentProjectDashboard:    "project_dashboard",
	domain.IntentProjectList:         "project_list",
	domain.IntentSystemStatus:        "system_status",
	domain.IntentBulkDelete:          "bulk_delete",
}

// ArtifactType names the artifact produced for an intent.
func ArtifactType(t domain.IntentType) string {
	if a, ok := artifactTypes[t]; ok {
		return a
	}
	return string(t)
}

func intentLabel(t domain.IntentType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

func forProject(query, project string) string {
	if project == "" {
		return query
	}
	return query + " for project " + project
}

func dashboardButton(project string, primary bool) domain.ActionButton {
	return domain.ActionButton{
		Label:   "View Dashboard",
		Query:   forProject("show dashboard", project),
		Icon:    "status-info",
		Primary: primary,
	}
}

// Actions returns the suggested follow-ups for an intent's artifact. Every
// set has exactly one primary button and a dashboard button.
func Actions(t domain.IntentType, project string, params map[string]string) []domain.ActionButton {
	well := params["well_id"]
	switch t {
	case domain.IntentTerrainAnalysis:
		return []domain.ActionButton{
			{Label: "Optimize Layout", Query: forProject("optimize layout", project), Icon: "settings", Primary: true},
			dashboardButton(project, false),
		}
	case domain.IntentLayoutOptimization:
		return []domain.ActionButton{
			{Label: "Run Wake Simulation", Query: forProject("run wake simulation", project), Icon: "refresh", Primary: true},
			dashboardButton(project, false),
			{Label: "Refine Layout", Query: forProject("optimize layout with 30 turbines", project), Icon: "edit"},
		}
	case domain.IntentWakeSimulation:
		return []domain.ActionButton{
			{Label: "Generate Report", Query: forProject("generate report", project), Icon: "file", Primary: true},
			dashboardButton(project, false),
		}
	case domain.IntentReportGeneration:
		return []domain.ActionButton{
			dashboardButton(project, true),
			{Label: "Start New Project", Query: "analyze terrain at <latitude>, <longitude>", Icon: "add-plus"},
		}
	case domain.IntentWellboreTrajectory:
		return []domain.ActionButton{
			{Label: "Calculate Porosity", Query: strings.TrimSpace("calculate porosity for " + well), Icon: "calculator", Primary: true},
			dashboardButton("", false),
		}
	case domain.IntentPorosityCalculation:
		return []domain.ActionButton{
			{Label: "Build Wellbore", Query: strings.TrimSpace("build wellbore " + well), Icon: "share", Primary: true},
			dashboardButton("", false),
		}
	case domain.IntentBulkDelete:
		if params["confirm"] != "true" && params["pattern"] != "" {
			return []domain.ActionButton{
				{Label: "Confirm Delete", Query: "delete projects matching " + params["pattern"] + " confirm", Icon: "remove", Primary: true},
				dashboardButton("", false),
			}
		}
		return []domain.ActionButton{
			dashboardButton("", true),
			{Label: "List Projects", Query: "list projects", Icon: "folder"},
		}
	}
	return []domain.ActionButton{dashboardButton(project, true)}
}

// NextStepHint names the first workflow step without results, in the order
// terrain, layout, simulation, report.
func NextStepHint(pc domain.ProjectContext) string {
	switch pc.NextStep() {
	case domain.StepTerrain:
		return "Next step: run terrain analysis for the site."
	case domain.StepLayout:
		return "Next step: optimize the turbine layout."
	case domain.StepSimulation:
		return "Next step: run a wake simulation."
	case domain.StepReport:
		return "Next step: generate the project report."
	}
	return "Workflow complete. Every analysis step has results."
}

func toolArtifact(t domain.IntentType, project string, params map[string]string, data map[string]any) domain.Artifact {
	title := titleCase(intentLabel(t))
	subtitle := project
	switch t {
	case domain.IntentWellboreTrajectory, domain.IntentPorosityCalculation:
		subtitle = params["well_id"]
	case domain.IntentHorizonSurface:
		subtitle = tools.String(data, "horizon_name")
	}
	if data == nil {
		data = map[string]any{}
	}
	return domain.Artifact{
		Type:     ArtifactType(t),
		Title:    title,
		Subtitle: subtitle,
		Data:     data,
		Actions:  Actions(t, project, params),
	}
}

func toolSummary(t domain.IntentType, project string, params map[string]string, data map[string]any) string {
	num := func(k string) float64 {
		v, _ := tools.Float(data, k)
		return v
	}
	switch t {
	case domain.IntentTerrainAnalysis:
		return fmt.Sprintf("Terrain analysis complete for %s: %.1f of %.1f km² buildable, mean slope %.1f°.",
			project, num("buildable_area_km2"), num("total_area_km2"), num("mean_slope_deg"))
	case domain.IntentLayoutOptimization:
		return fmt.Sprintf("Placed %.0f turbines (%.1f MW) for %s.", num("turbine_count"), num("capacity_mw"), project)
	case domain.IntentWakeSimulation:
		return fmt.Sprintf("Wake simulation complete for %s: net energy %.0f MWh/year with %.1f%% wake loss.",
			project, num("net_aep_mwh"), num("wake_loss_pct"))
	case domain.IntentReportGeneration:
		if s := tools.String(data, "summary"); s != "" {
			return "Report generated. " + s
		}
	case domain.IntentWellboreTrajectory:
		return fmt.Sprintf("Built trajectory for %s: total depth %.0f m, max inclination %.1f°.",
			params["well_id"], num("total_depth_m"), num("max_inclination_deg"))
	case domain.IntentPorosityCalculation:
		return fmt.Sprintf("Mean %s porosity for %s is %.1f%%.",
			tools.String(data, "method"), params["well_id"], num("mean_porosity")*100)
	case domain.IntentHorizonSurface:
		return fmt.Sprintf("Mapped horizon %s between %.0f m and %.0f m depth.",
			tools.String(data, "horizon_name"), num("min_depth_m"), num("max_depth_m"))
	}
	return titleCase(intentLabel(t)) + " complete."
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
