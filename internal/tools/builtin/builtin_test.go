package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/domain"
	"siteflow/internal/tools"
)

func invoke(t *testing.T, intent domain.IntentType, params map[string]any, pc domain.ProjectContext) tools.Result {
	t.Helper()
	r := tools.NewRegistry()
	Register(r)
	res, err := r.Invoke(context.Background(), tools.Invocation{Intent: intent, Parameters: params, ProjectContext: pc})
	require.NoError(t, err)
	return res
}

func TestRegisterCoversToolIntents(t *testing.T) {
	r := tools.NewRegistry()
	Register(r)
	assert.Len(t, r.Intents(), 7)
}

func TestTerrainDeterministic(t *testing.T) {
	params := map[string]any{"latitude": 35.067482, "longitude": -101.395466}
	a := invoke(t, domain.IntentTerrainAnalysis, params, domain.ProjectContext{})
	b := invoke(t, domain.IntentTerrainAnalysis, params, domain.ProjectContext{})
	require.True(t, a.Success)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, defaultRadiusKM, a.Data["radius_km"])
	assert.Greater(t, a.Data["buildable_area_km2"].(float64), 0.0)

	res := invoke(t, domain.IntentTerrainAnalysis, map[string]any{}, domain.ProjectContext{})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestLayoutThenWake(t *testing.T) {
	pc := domain.ProjectContext{
		ProjectName: "p1",
		Coordinates: &domain.Coordinates{Latitude: 35.0, Longitude: -101.0},
	}
	layout := invoke(t, domain.IntentLayoutOptimization, map[string]any{"num_turbines": 10}, pc)
	require.True(t, layout.Success, layout.Error)
	assert.Equal(t, 10, layout.Data["turbine_count"])
	assert.Equal(t, 4, layout.Data["columns"])
	assert.Equal(t, 3, layout.Data["rows"])
	assert.Len(t, layout.Data["turbines"], 10)

	res := invoke(t, domain.IntentWakeSimulation, nil, pc)
	assert.False(t, res.Success)

	pc.LayoutResults = layout.Data
	wake := invoke(t, domain.IntentWakeSimulation, map[string]any{"wind_speed": 9.0}, pc)
	require.True(t, wake.Success, wake.Error)
	loss := wake.Data["wake_loss_pct"].(float64)
	assert.Greater(t, loss, 0.0)
	assert.Less(t, loss, 50.0)
	assert.Less(t, wake.Data["net_aep_mwh"].(float64), wake.Data["gross_aep_mwh"].(float64))
	speeds := wake.Data["row_wind_speeds_ms"].([]float64)
	require.Len(t, speeds, 3)
	assert.Equal(t, 9.0, speeds[0])
	assert.Less(t, speeds[2], speeds[1])
}

func TestPowerCurve(t *testing.T) {
	assert.Zero(t, power(2))
	assert.Zero(t, power(cutOutMS))
	assert.Equal(t, ratedPowerMW, power(15))
	assert.InDelta(t, ratedPowerMW/8, power((cutInMS+ratedWindMS)/2), 1e-9)
}

func TestReportNeedsSteps(t *testing.T) {
	res := invoke(t, domain.IntentReportGeneration, nil, domain.ProjectContext{ProjectName: "empty"})
	assert.False(t, res.Success)

	res = invoke(t, domain.IntentReportGeneration, nil, domain.ProjectContext{
		ProjectName:    "p1",
		TerrainResults: map[string]any{"buildable_area_km2": 70.5},
		LayoutResults:  map[string]any{"capacity_mw": 90.0, "turbines": []any{"x"}},
	})
	require.True(t, res.Success)
	assert.Contains(t, res.Data["summary"], "70.5 km² buildable")
	assert.Contains(t, res.Data["summary"], "90.0 MW installed")
	sections := res.Data["sections"].([]map[string]any)
	require.Len(t, sections, 2)
	assert.NotContains(t, sections[1]["data"], "turbines")
}

func TestWellbore(t *testing.T) {
	res := invoke(t, domain.IntentWellboreTrajectory, map[string]any{"well_id": "WELL-011"}, domain.ProjectContext{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "WELL-011", res.Data["well_id"])
	points := res.Data["points"].([]map[string]any)
	assert.Len(t, points, 31)
	assert.Equal(t, 0.0, points[0]["tvd_m"])
	last := points[len(points)-1]
	assert.Less(t, last["tvd_m"].(float64), totalDepthM)
	assert.Greater(t, res.Data["horizontal_displacement_m"].(float64), 0.0)

	res = invoke(t, domain.IntentWellboreTrajectory, map[string]any{"well_id": "X"}, domain.ProjectContext{})
	assert.False(t, res.Success)
}

func TestPorosityMethods(t *testing.T) {
	mean := func(method string) float64 {
		res := invoke(t, domain.IntentPorosityCalculation, map[string]any{"well_id": "WELL-002", "method": method}, domain.ProjectContext{})
		require.True(t, res.Success, res.Error)
		return res.Data["mean_porosity"].(float64)
	}
	density := mean("density")
	assert.Greater(t, density, 0.1)
	assert.Less(t, density, 0.25)
	assert.Less(t, mean("effective"), density)
	assert.Greater(t, mean("neutron"), density)
	assert.Equal(t, density, mean(""))

	res := invoke(t, domain.IntentPorosityCalculation, map[string]any{"well_id": "WELL-002", "method": "sonic"}, domain.ProjectContext{})
	assert.False(t, res.Success)
}

func TestHorizon(t *testing.T) {
	res := invoke(t, domain.IntentHorizonSurface, map[string]any{"horizon_name": "top-brent"}, domain.ProjectContext{})
	require.True(t, res.Success)
	assert.Equal(t, "top-brent", res.Data["horizon_name"])
	assert.LessOrEqual(t, res.Data["min_depth_m"].(float64), res.Data["max_depth_m"].(float64))

	res = invoke(t, domain.IntentHorizonSurface, nil, domain.ProjectContext{})
	assert.Equal(t, "default", res.Data["horizon_name"])
}
