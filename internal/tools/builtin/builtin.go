// Package builtin provides deterministic local tool handlers so siteflow runs
// without remote services. The numbers are simplified engineering estimates
// derived only from the inputs.
package builtin

import (
	"math"

	"siteflow/internal/domain"
	"siteflow/internal/tools"
)

// Register installs every builtin handler into r.
func Register(r *tools.Registry) {
	r.Register(domain.IntentTerrainAnalysis, tools.HandlerFunc(Terrain))
	r.Register(domain.IntentLayoutOptimization, tools.HandlerFunc(Layout))
	r.Register(domain.IntentWakeSimulation, tools.HandlerFunc(Wake))
	r.Register(domain.IntentReportGeneration, tools.HandlerFunc(Report))
	r.Register(domain.IntentWellboreTrajectory, tools.HandlerFunc(Wellbore))
	r.Register(domain.IntentPorosityCalculation, tools.HandlerFunc(Porosity))
	r.Register(domain.IntentHorizonSurface, tools.HandlerFunc(Horizon))
}

const metersPerDegree = 111320.0

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// offset moves a coordinate by dx metres east and dy metres north.
func offset(lat, lon, dx, dy float64) (float64, float64) {
	dLat := dy / metersPerDegree
	dLon := dx / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return lat + dLat, lon + dLon
}

func coordinates(inv tools.Invocation) (float64, float64, bool) {
	lat, okLat := tools.Float(inv.Parameters, "latitude")
	lon, okLon := tools.Float(inv.Parameters, "longitude")
	if okLat && okLon {
		return lat, lon, true
	}
	if c := inv.ProjectContext.Coordinates; c != nil {
		return c.Latitude, c.Longitude, true
	}
	return 0, 0, false
}
