package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/domain"
)

func intentOf(t domain.IntentType, params map[string]string) domain.Intent {
	return domain.Intent{Type: t, Confidence: 0.9, Parameters: params}
}

func TestExplicitParametersValid(t *testing.T) {
	res := Validate(intentOf(domain.IntentTerrainAnalysis, map[string]string{
		"latitude":  "35.067482",
		"longitude": "-101.395466",
	}), nil)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.MissingRequired)
	assert.Empty(t, res.SatisfiedByContext)
}

func TestCoordinatesSatisfiedByContext(t *testing.T) {
	pc := &domain.ProjectContext{
		ProjectName:    "wind-farm-a",
		Coordinates:    &domain.Coordinates{Latitude: 35.067482, Longitude: -101.395466},
		TerrainResults: map[string]any{"features": 12},
	}
	in := intentOf(domain.IntentLayoutOptimization, map[string]string{"project_name": "wind-farm-a"})

	res := Validate(in, pc)
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{"latitude", "longitude"}, res.SatisfiedByContext)
	assert.Empty(t, res.MissingRequired)

	params := Resolve(in, pc)
	assert.Equal(t, "35.067482", params["latitude"])
	assert.Equal(t, "-101.395466", params["longitude"])
	assert.Equal(t, "wind-farm-a", params["project_name"])
}

func TestExplicitWinsOverContext(t *testing.T) {
	pc := &domain.ProjectContext{Coordinates: &domain.Coordinates{Latitude: 1, Longitude: 2}}
	in := intentOf(domain.IntentLayoutOptimization, map[string]string{"latitude": "10.5"})
	params := Resolve(in, pc)
	assert.Equal(t, "10.5", params["latitude"])
	assert.Equal(t, "2", params["longitude"])

	res := Validate(in, pc)
	assert.Equal(t, []string{"longitude"}, res.SatisfiedByContext)
}

func TestMissingNamedWithGuidance(t *testing.T) {
	in := intentOf(domain.IntentLayoutOptimization, map[string]string{"project_name": "my-project"})
	res := Validate(in, nil)
	require.False(t, res.IsValid)
	assert.Equal(t, []string{"latitude", "longitude"}, res.MissingRequired)

	msg := FormatError(res, in.Type, nil)
	assert.Contains(t, msg, "latitude")
	assert.Contains(t, msg, "longitude")
	assert.Contains(t, msg, "Provide coordinates")
	assert.Contains(t, msg, "run terrain analysis first")
	assert.NotContains(t, msg, "Active project")
}

func TestProjectIDNeedsPriorStep(t *testing.T) {
	onlyTerrain := &domain.ProjectContext{ProjectName: "p1", TerrainResults: map[string]any{}}
	withLayout := &domain.ProjectContext{ProjectName: "p1", TerrainResults: map[string]any{}, LayoutResults: map[string]any{}}
	empty := &domain.ProjectContext{ProjectName: "p1"}

	wake := intentOf(domain.IntentWakeSimulation, nil)
	assert.False(t, Validate(wake, onlyTerrain).IsValid)
	res := Validate(wake, withLayout)
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{"project_id"}, res.SatisfiedByContext)

	report := intentOf(domain.IntentReportGeneration, nil)
	assert.True(t, Validate(report, onlyTerrain).IsValid)
	res = Validate(report, empty)
	assert.Equal(t, []string{"project_id"}, res.MissingRequired)

	msg := FormatError(Validate(wake, onlyTerrain), domain.IntentWakeSimulation, onlyTerrain)
	assert.Contains(t, msg, "project_id")
	assert.Contains(t, msg, "Run layout optimization first")
	assert.Contains(t, msg, "Active project: p1")
}

func TestAllProblemsReported(t *testing.T) {
	in := intentOf(domain.IntentLayoutOptimization, map[string]string{
		"latitude":     "95",
		"num_turbines": "0",
	})
	res := Validate(in, nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"longitude"}, res.MissingRequired)
	require.Len(t, res.InvalidValues, 2)
	assert.Contains(t, res.InvalidValues[0], "latitude=95")
	assert.Contains(t, res.InvalidValues[1], "num_turbines=0")

	msg := FormatError(res, in.Type, nil)
	assert.Contains(t, msg, "Missing required parameters for layout optimization: longitude.")
	assert.Contains(t, msg, "latitude=95")
}

func TestValueConstraints(t *testing.T) {
	cases := []struct {
		intent domain.IntentType
		params map[string]string
		valid  bool
	}{
		{domain.IntentTerrainAnalysis, map[string]string{"latitude": "-90", "longitude": "180"}, true},
		{domain.IntentTerrainAnalysis, map[string]string{"latitude": "abc", "longitude": "1"}, false},
		{domain.IntentTerrainAnalysis, map[string]string{"latitude": "1", "longitude": "1", "radius_km": "0"}, false},
		{domain.IntentTerrainAnalysis, map[string]string{"latitude": "1", "longitude": "1", "radius_km": "50"}, true},
		{domain.IntentWakeSimulation, map[string]string{"project_id": "p", "wind_speed": "41"}, false},
		{domain.IntentWellboreTrajectory, map[string]string{"well_id": "WELL-011"}, true},
		{domain.IntentWellboreTrajectory, map[string]string{"well_id": "WELL-11"}, false},
		{domain.IntentPorosityCalculation, map[string]string{"well_id": "WELL-001", "method": "sonic"}, false},
		{domain.IntentPorosityCalculation, map[string]string{"well_id": "WELL-001", "method": "neutron"}, true},
		{domain.IntentHorizonSurface, nil, true},
		{domain.IntentUnknown, nil, true},
	}
	for _, tc := range cases {
		res := Validate(intentOf(tc.intent, tc.params), nil)
		assert.Equal(t, tc.valid, res.IsValid, "%s %v", tc.intent, tc.params)
	}
}

func TestFormatErrorValid(t *testing.T) {
	assert.Empty(t, FormatError(domain.ValidationResult{IsValid: true}, domain.IntentTerrainAnalysis, nil))
}
