package builtin

import (
	"context"
	"fmt"
	"math"
	"strings"

	"siteflow/internal/domain"
	"siteflow/internal/tools"
)

const (
	defaultRadiusKM  = 5.0
	defaultTurbines  = 25
	rotorDiameterM   = 120.0
	hubHeightM       = 100.0
	ratedPowerMW     = 3.6
	spacingDiameters = 7.0
	defaultWindMS    = 8.5
	cutInMS          = 3.0
	ratedWindMS      = 12.0
	cutOutMS         = 25.0
	thrustCoeff      = 0.8
	wakeDecay        = 0.075
	hoursPerYear     = 8760.0
	availability     = 0.97
)

// Terrain summarises a circular site around the requested coordinates.
func Terrain(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	lat, lon, ok := coordinates(inv)
	if !ok {
		return tools.Fail("terrain analysis needs latitude and longitude"), nil
	}
	radius, ok := tools.Float(inv.Parameters, "radius_km")
	if !ok {
		radius = defaultRadiusKM
	}
	// Elevation and slope vary smoothly with position.
	elevation := 300 + 900*math.Abs(math.Sin(lat*math.Pi/180)*math.Cos(lon*math.Pi/360))
	slope := 1 + 11*math.Abs(math.Sin((lat+lon)*math.Pi/90))
	exclusions := int(math.Round(2 + radius*math.Abs(math.Cos(lat*lon*math.Pi/180))))
	exclusionShare := math.Min(0.6, float64(exclusions)*0.04)
	area := math.Pi * radius * radius
	return tools.Result{Success: true, Data: map[string]any{
		"coordinates":           map[string]any{"latitude": lat, "longitude": lon},
		"radius_km":             radius,
		"mean_elevation_m":      round(elevation, 1),
		"mean_slope_deg":        round(slope, 2),
		"exclusion_zones":       exclusions,
		"total_area_km2":        round(area, 2),
		"buildable_area_km2":    round(area*(1-exclusionShare), 2),
		"suitable_for_turbines": slope < 10,
	}}, nil
}

// Layout places turbines on a square grid with a fixed spacing in rotor
// diameters, centred on the site.
func Layout(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	lat, lon, ok := coordinates(inv)
	if !ok {
		return tools.Fail("layout optimization needs site coordinates"), nil
	}
	n := defaultTurbines
	if v, ok := tools.Float(inv.Parameters, "num_turbines"); ok {
		n = int(v)
	}
	if n < 1 {
		return tools.Fail("num_turbines must be at least 1"), nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))
	spacing := spacingDiameters * rotorDiameterM
	turbines := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		r, c := i/cols, i%cols
		dx := (float64(c) - float64(cols-1)/2) * spacing
		dy := (float64(rows-1)/2 - float64(r)) * spacing
		tlat, tlon := offset(lat, lon, dx, dy)
		turbines = append(turbines, map[string]any{
			"id":        fmt.Sprintf("T%02d", i+1),
			"row":       r,
			"latitude":  round(tlat, 6),
			"longitude": round(tlon, 6),
		})
	}
	return tools.Result{Success: true, Data: map[string]any{
		"turbine_count":    n,
		"rows":             rows,
		"columns":          cols,
		"spacing_m":        spacing,
		"rotor_diameter_m": rotorDiameterM,
		"hub_height_m":     hubHeightM,
		"capacity_mw":      round(float64(n)*ratedPowerMW, 1),
		"turbines":         turbines,
	}}, nil
}

// Wake estimates energy yield for the saved layout with the Jensen model,
// wind blowing along the columns so every row shades the rows behind it.
func Wake(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	layout := inv.ProjectContext.LayoutResults
	if layout == nil {
		return tools.Fail("wake simulation needs a saved layout; run layout optimization first"), nil
	}
	count, ok := tools.Float(layout, "turbine_count")
	if !ok || count < 1 {
		return tools.Fail("saved layout has no turbines"), nil
	}
	rows, _ := tools.Float(layout, "rows")
	cols, _ := tools.Float(layout, "columns")
	spacing, _ := tools.Float(layout, "spacing_m")
	if rows < 1 || cols < 1 || spacing <= 0 {
		return tools.Fail("saved layout is missing its grid geometry"), nil
	}
	wind, ok := tools.Float(inv.Parameters, "wind_speed")
	if !ok {
		wind = defaultWindMS
	}

	radius := rotorDiameterM / 2
	single := 1 - math.Sqrt(1-thrustCoeff)
	var gross, net float64
	remaining := int(count)
	rowSpeeds := make([]float64, 0, int(rows))
	for r := 0; r < int(rows) && remaining > 0; r++ {
		// Upstream deficits combine as the root sum of squares.
		var sumSq float64
		for up := 0; up < r; up++ {
			x := float64(r-up) * spacing
			d := single / math.Pow(1+wakeDecay*x/radius, 2)
			sumSq += d * d
		}
		v := wind * (1 - math.Sqrt(sumSq))
		rowSpeeds = append(rowSpeeds, round(v, 2))
		inRow := int(math.Min(cols, float64(remaining)))
		remaining -= inRow
		gross += float64(inRow) * power(wind)
		net += float64(inRow) * power(v)
	}
	loss := 0.0
	if gross > 0 {
		loss = (gross - net) / gross * 100
	}
	capacity := count * ratedPowerMW
	netAEP := net * hoursPerYear * availability
	return tools.Result{Success: true, Data: map[string]any{
		"wind_speed_ms":      wind,
		"row_wind_speeds_ms": rowSpeeds,
		"wake_loss_pct":      round(loss, 2),
		"gross_aep_mwh":      round(gross*hoursPerYear*availability, 0),
		"net_aep_mwh":        round(netAEP, 0),
		"capacity_factor":    round(netAEP/(capacity*hoursPerYear), 3),
		"model":              "jensen",
	}}, nil
}

// power is a cubic power curve between cut-in and rated wind speed, in MW.
func power(v float64) float64 {
	switch {
	case v < cutInMS || v >= cutOutMS:
		return 0
	case v >= ratedWindMS:
		return ratedPowerMW
	}
	f := (v - cutInMS) / (ratedWindMS - cutInMS)
	return ratedPowerMW * f * f * f
}

// Report assembles the completed workflow steps into report sections.
func Report(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	pc := inv.ProjectContext
	steps := pc.CompletedSteps()
	if len(steps) == 0 {
		return tools.Fail("project %s has no analysis results to report on", pc.ProjectName), nil
	}
	sections := make([]map[string]any, 0, len(steps))
	var summary []string
	for _, s := range steps {
		switch s {
		case domain.StepTerrain:
			sections = append(sections, map[string]any{"title": "Site terrain", "data": pc.TerrainResults})
			if a, ok := tools.Float(pc.TerrainResults, "buildable_area_km2"); ok {
				summary = append(summary, fmt.Sprintf("%.1f km² buildable", a))
			}
		case domain.StepLayout:
			sections = append(sections, map[string]any{"title": "Turbine layout", "data": withoutKey(pc.LayoutResults, "turbines")})
			if c, ok := tools.Float(pc.LayoutResults, "capacity_mw"); ok {
				summary = append(summary, fmt.Sprintf("%.1f MW installed", c))
			}
		case domain.StepSimulation:
			sections = append(sections, map[string]any{"title": "Energy yield", "data": pc.SimulationResults})
			if e, ok := tools.Float(pc.SimulationResults, "net_aep_mwh"); ok {
				summary = append(summary, fmt.Sprintf("%.0f MWh/year net", e))
			}
		}
	}
	text := fmt.Sprintf("Project %s", pc.ProjectName)
	if len(summary) > 0 {
		text += ": " + strings.Join(summary, ", ")
	}
	return tools.Result{Success: true, Data: map[string]any{
		"project_name": pc.ProjectName,
		"summary":      text,
		"sections":     sections,
	}}, nil
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
