// Package validate checks an intent's parameters against its requirements,
// falling back to the active project context for parameters a previous
// workflow step already established.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"siteflow/internal/domain"
)

// Check reports why value is unacceptable, or "" when it is fine.
type Check func(value string) string

type Requirement struct {
	Required []string
	// Checks run against every parameter present after context resolution,
	// whether or not it is required.
	Checks map[string]Check
	// Guidance is appended to the formatted error for this intent.
	Guidance string
}

var wellIDRe = regexp.MustCompile(`^WELL-\d{3,4}$`)

var coordinateChecks = map[string]Check{
	"latitude":  floatRange(-90, 90, true),
	"longitude": floatRange(-180, 180, true),
}

// Requirements is the per-intent requirement table. Intents absent from the
// table need no parameters.
var Requirements = map[domain.IntentType]Requirement{
	domain.IntentTerrainAnalysis: {
		Required: []string{"latitude", "longitude"},
		Checks: merge(coordinateChecks, map[string]Check{
			"radius_km": floatRange(0, 50, false),
		}),
		Guidance: "Include the site coordinates as latitude, longitude, for example: analyze terrain at 35.067482, -101.395466.",
	},
	domain.IntentLayoutOptimization: {
		Required: []string{"latitude", "longitude"},
		Checks: merge(coordinateChecks, map[string]Check{
			"num_turbines": intRange(1, 500),
		}),
		Guidance: "Provide coordinates (for example: optimize layout at 35.067482, -101.395466) or run terrain analysis first so the project has a site location.",
	},
	domain.IntentWakeSimulation: {
		Required: []string{"project_id"},
		Checks: map[string]Check{
			"wind_speed": floatRange(0, 40, true),
		},
		Guidance: "Run layout optimization first, or name a project that already has a layout, for example: run wake simulation for project <name>.",
	},
	domain.IntentReportGeneration: {
		Required: []string{"project_id"},
		Guidance: "Run terrain analysis first, then name the project to report on, for example: generate report for project <name>.",
	},
	domain.IntentWellboreTrajectory: {
		Required: []string{"well_id"},
		Checks:   map[string]Check{"well_id": wellID},
		Guidance: "Include a well ID such as WELL-011.",
	},
	domain.IntentPorosityCalculation: {
		Required: []string{"well_id"},
		Checks: map[string]Check{
			"well_id": wellID,
			"method":  oneOf("density", "neutron", "effective"),
		},
		Guidance: "Include a well ID such as WELL-011 and optionally a method (density, neutron or effective).",
	},
	domain.IntentBulkDelete: {
		Required: []string{"pattern"},
		Guidance: "Name the projects to delete, for example: delete projects matching texas.",
	},
}

// Validate evaluates every required parameter and every constraint before
// returning, so the result is a complete diagnostic.
func Validate(in domain.Intent, pc *domain.ProjectContext) domain.ValidationResult {
	res := domain.ValidationResult{
		MissingRequired:    []string{},
		InvalidValues:      []string{},
		SatisfiedByContext: []string{},
	}
	req := Requirements[in.Type]
	for _, name := range req.Required {
		if in.Param(name) != "" {
			continue
		}
		if _, ok := fromContext(in.Type, name, pc); ok {
			res.SatisfiedByContext = append(res.SatisfiedByContext, name)
			continue
		}
		res.MissingRequired = append(res.MissingRequired, name)
	}
	params := Resolve(in, pc)
	for _, name := range sortedKeys(req.Checks) {
		value, ok := params[name]
		if !ok || value == "" {
			continue
		}
		if reason := req.Checks[name](value); reason != "" {
			res.InvalidValues = append(res.InvalidValues, fmt.Sprintf("%s=%s (%s)", name, value, reason))
		}
	}
	res.IsValid = len(res.MissingRequired) == 0 && len(res.InvalidValues) == 0
	return res
}

// Resolve returns the explicit parameters plus any required parameter the
// context can supply. Explicit values always win.
func Resolve(in domain.Intent, pc *domain.ProjectContext) map[string]string {
	out := make(map[string]string, len(in.Parameters)+2)
	for k, v := range in.Parameters {
		out[k] = v
	}
	for _, name := range Requirements[in.Type].Required {
		if out[name] != "" {
			continue
		}
		if v, ok := fromContext(in.Type, name, pc); ok {
			out[name] = v
		}
	}
	return out
}

func fromContext(t domain.IntentType, name string, pc *domain.ProjectContext) (string, bool) {
	if pc == nil {
		return "", false
	}
	switch name {
	case "latitude":
		if pc.Coordinates != nil {
			return strconv.FormatFloat(pc.Coordinates.Latitude, 'f', -1, 64), true
		}
	case "longitude":
		if pc.Coordinates != nil {
			return strconv.FormatFloat(pc.Coordinates.Longitude, 'f', -1, 64), true
		}
	case "project_id":
		if pc.ProjectName == "" {
			return "", false
		}
		switch t {
		case domain.IntentWakeSimulation:
			if pc.Has(domain.StepLayout) {
				return pc.ProjectName, true
			}
		default:
			if len(pc.CompletedSteps()) > 0 {
				return pc.ProjectName, true
			}
		}
	}
	return "", false
}

// FormatError renders a failed ValidationResult as guidance for the user. It
// returns "" for a valid result.
func FormatError(res domain.ValidationResult, t domain.IntentType, pc *domain.ProjectContext) string {
	if res.IsValid {
		return ""
	}
	var b strings.Builder
	label := strings.ReplaceAll(string(t), "_", " ")
	if len(res.MissingRequired) > 0 {
		fmt.Fprintf(&b, "Missing required parameters for %s: %s.", label, strings.Join(res.MissingRequired, ", "))
	}
	if len(res.InvalidValues) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Invalid values for %s: %s.", label, strings.Join(res.InvalidValues, "; "))
	}
	if g := Requirements[t].Guidance; g != "" {
		b.WriteString("\n\n")
		b.WriteString(g)
	}
	if pc != nil && pc.ProjectName != "" {
		b.WriteString("\n\nActive project: ")
		b.WriteString(pc.ProjectName)
	}
	return b.String()
}

func floatRange(lo, hi float64, inclusiveLo bool) Check {
	return func(v string) string {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "must be a number"
		}
		if f > hi || f < lo || (!inclusiveLo && f == lo) {
			if inclusiveLo {
				return fmt.Sprintf("must be between %g and %g", lo, hi)
			}
			return fmt.Sprintf("must be greater than %g and at most %g", lo, hi)
		}
		return ""
	}
}

func intRange(lo, hi int) Check {
	return func(v string) string {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "must be a whole number"
		}
		if n < lo || n > hi {
			return fmt.Sprintf("must be between %d and %d", lo, hi)
		}
		return ""
	}
}

func oneOf(allowed ...string) Check {
	return func(v string) string {
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}

func wellID(v string) string {
	if !wellIDRe.MatchString(v) {
		return "must look like WELL-011"
	}
	return ""
}

func merge(a, b map[string]Check) map[string]Check {
	out := make(map[string]Check, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]Check) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
