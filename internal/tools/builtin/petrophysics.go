package builtin

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"siteflow/internal/tools"
)

const (
	matrixDensity = 2.65
	fluidDensity  = 1.0
	surveyStepM   = 100.0
	totalDepthM   = 3000.0
	buildRate     = 3.0 / 30.0 // degrees per metre
	logTopM       = 1500.0
	logBaseM      = 2000.0
	logStepM      = 25.0
)

var wellNumberRe = regexp.MustCompile(`^WELL-(\d{3,4})$`)

func wellNumber(inv tools.Invocation) (string, int, bool) {
	id := strings.ToUpper(tools.String(inv.Parameters, "well_id"))
	sm := wellNumberRe.FindStringSubmatch(id)
	if sm == nil {
		return id, 0, false
	}
	n, err := strconv.Atoi(sm[1])
	return id, n, err == nil
}

// Wellbore builds a build-and-hold survey using the minimum curvature method.
// Kickoff depth, final inclination and azimuth are derived from the well number.
func Wellbore(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	id, n, ok := wellNumber(inv)
	if !ok {
		return tools.Fail("unknown well %q", id), nil
	}
	kickoff := 500 + float64(n%20)*25
	maxInc := 20 + float64(n%40)
	azimuth := float64((n * 37) % 360)

	type station struct{ md, inc, tvd, north, east float64 }
	prev := station{}
	points := []map[string]any{}
	for md := 0.0; md <= totalDepthM; md += surveyStepM {
		inc := 0.0
		if md > kickoff {
			inc = math.Min(maxInc, (md-kickoff)*buildRate)
		}
		cur := station{md: md, inc: inc}
		if md > 0 {
			i1, i2 := prev.inc*math.Pi/180, inc*math.Pi/180
			az := azimuth * math.Pi / 180
			dogleg := math.Abs(i2 - i1)
			rf := 1.0
			if dogleg > 1e-9 {
				rf = 2 / dogleg * math.Tan(dogleg/2)
			}
			half := (md - prev.md) / 2 * rf
			horiz := half * (math.Sin(i1) + math.Sin(i2))
			cur.tvd = prev.tvd + half*(math.Cos(i1)+math.Cos(i2))
			cur.north = prev.north + horiz*math.Cos(az)
			cur.east = prev.east + horiz*math.Sin(az)
		}
		points = append(points, map[string]any{
			"md_m":            md,
			"inclination_deg": round(inc, 2),
			"azimuth_deg":     azimuth,
			"tvd_m":           round(cur.tvd, 1),
			"north_m":         round(cur.north, 1),
			"east_m":          round(cur.east, 1),
		})
		prev = cur
	}
	return tools.Result{Success: true, Data: map[string]any{
		"well_id":                   id,
		"kickoff_depth_m":           kickoff,
		"max_inclination_deg":       maxInc,
		"azimuth_deg":               azimuth,
		"total_depth_m":             totalDepthM,
		"true_vertical_depth_m":     round(prev.tvd, 1),
		"horizontal_displacement_m": round(math.Hypot(prev.north, prev.east), 1),
		"points":                    points,
	}}, nil
}

// Porosity computes porosity over a synthetic log interval. Density porosity
// uses (matrix - bulk) / (matrix - fluid); effective porosity removes the
// shale fraction from it.
func Porosity(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	id, n, ok := wellNumber(inv)
	if !ok {
		return tools.Fail("unknown well %q", id), nil
	}
	method := strings.ToLower(tools.String(inv.Parameters, "method"))
	if method == "" {
		method = "density"
	}
	phase := float64(n) * 0.7
	samples := []map[string]any{}
	var sum, lo, hi float64
	lo = math.Inf(1)
	for depth := logTopM; depth <= logBaseM; depth += logStepM {
		x := (depth-logTopM)/(logBaseM-logTopM)*2*math.Pi + phase
		bulk := 2.35 + 0.12*math.Sin(x)
		vsh := 0.15 + 0.1*math.Cos(x*1.3)
		density := (matrixDensity - bulk) / (matrixDensity - fluidDensity)
		var phi float64
		switch method {
		case "density":
			phi = density
		case "neutron":
			phi = density + 0.1*vsh
		case "effective":
			phi = density * (1 - vsh)
		default:
			return tools.Fail("unsupported porosity method %q", method), nil
		}
		phi = math.Max(0, math.Min(0.45, phi))
		sum += phi
		lo = math.Min(lo, phi)
		hi = math.Max(hi, phi)
		samples = append(samples, map[string]any{
			"depth_m":      depth,
			"porosity":     round(phi, 4),
			"shale_volume": round(vsh, 4),
		})
	}
	return tools.Result{Success: true, Data: map[string]any{
		"well_id":       id,
		"method":        method,
		"mean_porosity": round(sum/float64(len(samples)), 4),
		"min_porosity":  round(lo, 4),
		"max_porosity":  round(hi, 4),
		"interval_m":    []float64{logTopM, logBaseM},
		"samples":       samples,
	}}, nil
}

// Horizon grids a depth surface for the named horizon over a 2 km square.
func Horizon(_ context.Context, inv tools.Invocation) (tools.Result, error) {
	name := tools.String(inv.Parameters, "horizon_name")
	if name == "" {
		name = "default"
	}
	var seed float64
	for _, r := range name {
		seed += float64(r)
	}
	const nx, ny, cell = 11, 11, 200.0
	base := 1800 + math.Mod(seed, 400)
	depths := make([][]float64, ny)
	lo, hi := math.Inf(1), math.Inf(-1)
	for j := 0; j < ny; j++ {
		depths[j] = make([]float64, nx)
		for i := 0; i < nx; i++ {
			x, y := float64(i)*cell, float64(j)*cell
			d := base + 40*math.Sin(x/600+seed) + 25*math.Cos(y/450) + 0.01*(x+y)
			depths[j][i] = round(d, 1)
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
	}
	return tools.Result{Success: true, Data: map[string]any{
		"horizon_name": name,
		"nx":           nx,
		"ny":           ny,
		"cell_size_m":  cell,
		"min_depth_m":  round(lo, 1),
		"max_depth_m":  round(hi, 1),
		"depths_m":     depths,
	}}, nil
}
