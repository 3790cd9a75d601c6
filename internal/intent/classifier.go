// Package intent maps a chat message to exactly one domain intent using an
// ordered table of regular-expression rules. The first matching rule wins.
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"siteflow/internal/domain"
)

const (
	FullConfidence    = 0.9
	PartialConfidence = 0.6
)

// Rule is one entry of the classification table. Match decides whether the
// rule fires; Extract pulls parameters out of the message. When a parameter
// listed in Expects cannot be extracted the rule still wins, with
// PartialConfidence.
type Rule struct {
	Type    domain.IntentType
	Match   func(msg string) bool
	Extract func(msg string) map[string]string
	Expects []string
}

type Classifier struct {
	rules []Rule
}

// New returns a classifier using the default rule table.
func New() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewWithRules returns a classifier evaluating rules in the given order.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify never fails: a message no rule matches yields IntentUnknown with
// zero confidence.
func (c *Classifier) Classify(message string) domain.Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return unknown()
	}
	for _, r := range c.rules {
		if !r.Match(msg) {
			continue
		}
		params := map[string]string{}
		if r.Extract != nil {
			for k, v := range r.Extract(msg) {
				if v != "" {
					params[k] = v
				}
			}
		}
		confidence := FullConfidence
		for _, name := range r.Expects {
			if params[name] == "" {
				confidence = PartialConfidence
				break
			}
		}
		return domain.Intent{Type: r.Type, Confidence: confidence, Parameters: params}
	}
	return unknown()
}

func unknown() domain.Intent {
	return domain.Intent{Type: domain.IntentUnknown, Confidence: 0, Parameters: map[string]string{}}
}

var (
	greetingRe = regexp.MustCompile(`^(hello|hi|hey|greetings|good (morning|afternoon|evening|day))\b|\b(status|online|up|running|how are you|are you there|what can you do|help)\b`)
	// actionRe lists the verbs and subjects of every other intent. A greeting
	// that carries any of them is routed to that intent instead.
	actionRe   = regexp.MustCompile(`\b(build|create|analy[sz]e|optimi[sz]e|simulate|generate|calculate|compute|delete|remove|list|show|run|place|map|render|produce|plot|terrain|layout|wake|wellbore|trajectory|porosity|horizons?|report|dashboard|projects?|turbines?)\b`)

	deleteRe        = regexp.MustCompile(`\b(delete|remove|purge)\s+(all\s+)?(the\s+|my\s+)?([a-z0-9_-]+\s+)?projects?\b`)
	deletePatternRe = regexp.MustCompile(`\b(?:matching|named|containing|called|like|with)\s+["']?([a-z0-9][a-z0-9_-]*)`)
	deleteAllRe     = regexp.MustCompile(`\b(?:delete|remove|purge)\s+(?:all\s+)?(?:the\s+|my\s+)?([a-z0-9][a-z0-9_-]*)\s+projects\b`)
	confirmRe       = regexp.MustCompile(`\bconfirm(ed)?\b`)

	dashboardRe = regexp.MustCompile(`\bdashboard\b|\bproject (status|summary|overview)\b|\b(status|summary|overview) of (the )?project\b`)
	listRe      = regexp.MustCompile(`\b(list|show|what)\b.*\bprojects\b|\bmy projects\b`)

	wellVerbRe     = regexp.MustCompile(`\b(build|create|generate|render|show|plot|visuali[sz]e|draw)\b`)
	wellboreRe     = regexp.MustCompile(`\b(wellbore|trajectory|well path|well survey)\b`)
	wellIDRe       = regexp.MustCompile(`\bwell[-_ ]?(\d{1,4})\b`)
	porosityRe     = regexp.MustCompile(`\b(porosity|shale volume|water saturation|petrophysic(s|al))\b`)
	methodRe       = regexp.MustCompile(`\b(density|neutron|effective)\b`)
	horizonRe      = regexp.MustCompile(`\bhorizons?\b`)
	horizonAfterRe = regexp.MustCompile(`\bhorizons?\s+(?:named\s+|called\s+)?["']?([a-z0-9][a-z0-9_-]*)`)
	horizonPreRe   = regexp.MustCompile(`\b([a-z0-9][a-z0-9_-]*)\s+horizon\b`)

	reportVerbRe = regexp.MustCompile(`\b(generate|create|produce|write|give|build|prepare)\b`)
	reportRe     = regexp.MustCompile(`\breports?\b`)

	// A bare "wake" is a subject, not a request: "reduce wake losses" is a
	// layout request.
	wakeRe      = regexp.MustCompile(`\b(simulate|simulation|energy yield|aep|annual energy)\b|\b(run|compute|calculate|model|estimate)\b.*\bwake\b|\bwake (analysis|model(l)?ing)\b`)
	windSpeedRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:m/s|mps|meters per second)|\bwind speed (?:of )?(\d+(?:\.\d+)?)`)

	layoutRe      = regexp.MustCompile(`\blayout\b|\bturbine placement\b|\bplace\s+(?:\d+\s+)?turbines?\b|\boptimi[sz]e\b.*\b(turbines?|wind farm)\b`)
	numTurbinesRe = regexp.MustCompile(`\b(\d+)\s+(?:wind\s+)?turbines?\b`)

	terrainRe = regexp.MustCompile(`\b(terrain|topograph(y|ic)|site analysis|elevation)\b|\banaly[sz]e\b.*\b(site|location|area|coordinates)\b`)
	radiusRe  = regexp.MustCompile(`\bradius (?:of )?(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*km\b`)

	// The latitude must not be the tail of a longer number.
	coordsRe = regexp.MustCompile(`(?:^|[^\d.])(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)`)

	projectForRe  = regexp.MustCompile(`\bfor\s+(?:the\s+)?project\s+(?:named\s+|called\s+)?["']?([a-z0-9][a-z0-9_-]*)`)
	projectWordRe = regexp.MustCompile(`\bproject\s+(?:named\s+|called\s+)?["']?([a-z0-9][a-z0-9_-]*)`)
	projectSlugRe = regexp.MustCompile(`\bfor\s+["']?([a-z0-9]+(?:[-_][a-z0-9]+)+)`)

	projectNameStop = map[string]bool{
		"status": true, "summary": true, "overview": true, "dashboard": true,
		"data": true, "results": true, "the": true, "a": true, "an": true,
	}
	horizonNameStop = map[string]bool{
		"surface": true, "surfaces": true, "data": true, "for": true, "the": true,
		"a": true, "an": true, "map": true, "from": true, "in": true, "of": true,
		"at": true, "show": true, "find": true, "get": true, "plot": true,
		"visualize": true, "visualise": true, "all": true, "and": true, "with": true,
		"build": true, "create": true, "render": true, "my": true, "this": true,
	}
)

// DefaultRules is the priority-ordered rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type: domain.IntentSystemStatus,
			Match: func(m string) bool {
				return greetingRe.MatchString(m) && !actionRe.MatchString(m)
			},
		},
		{
			Type:    domain.IntentBulkDelete,
			Match:   deleteRe.MatchString,
			Extract: extractBulkDelete,
			Expects: []string{"pattern"},
		},
		{
			Type:    domain.IntentProjectDashboard,
			Match:   dashboardRe.MatchString,
			Extract: func(m string) map[string]string { return map[string]string{"project_name": projectName(m)} },
		},
		{
			Type:  domain.IntentProjectList,
			Match: listRe.MatchString,
		},
		{
			Type: domain.IntentWellboreTrajectory,
			Match: func(m string) bool {
				if wellboreRe.MatchString(m) {
					return true
				}
				return wellVerbRe.MatchString(m) && wellIDRe.MatchString(m) && !porosityRe.MatchString(m) && !horizonRe.MatchString(m)
			},
			Extract: func(m string) map[string]string { return map[string]string{"well_id": wellID(m)} },
			Expects: []string{"well_id"},
		},
		{
			Type:  domain.IntentPorosityCalculation,
			Match: porosityRe.MatchString,
			Extract: func(m string) map[string]string {
				return map[string]string{"well_id": wellID(m), "method": firstGroup(methodRe, m)}
			},
			Expects: []string{"well_id"},
		},
		{
			Type:    domain.IntentHorizonSurface,
			Match:   horizonRe.MatchString,
			Extract: func(m string) map[string]string { return map[string]string{"horizon_name": horizonName(m)} },
		},
		{
			Type: domain.IntentReportGeneration,
			Match: func(m string) bool {
				return reportVerbRe.MatchString(m) && reportRe.MatchString(m)
			},
			Extract: renewableParams,
		},
		{
			Type:  domain.IntentWakeSimulation,
			Match: wakeRe.MatchString,
			Extract: func(m string) map[string]string {
				p := renewableParams(m)
				p["wind_speed"] = firstGroup(windSpeedRe, m)
				return p
			},
		},
		{
			Type:  domain.IntentLayoutOptimization,
			Match: layoutRe.MatchString,
			Extract: func(m string) map[string]string {
				p := renewableParams(m)
				p["num_turbines"] = firstGroup(numTurbinesRe, m)
				return p
			},
		},
		{
			Type:  domain.IntentTerrainAnalysis,
			Match: terrainRe.MatchString,
			Extract: func(m string) map[string]string {
				p := renewableParams(m)
				p["radius_km"] = firstGroup(radiusRe, m)
				return p
			},
			Expects: []string{"latitude", "longitude"},
		},
	}
}

func extractBulkDelete(m string) map[string]string {
	p := map[string]string{}
	switch {
	case deletePatternRe.MatchString(m):
		p["pattern"] = firstGroup(deletePatternRe, m)
	case deleteAllRe.MatchString(m):
		p["pattern"] = firstGroup(deleteAllRe, m)
	default:
		p["pattern"] = projectName(m)
	}
	if p["pattern"] == "all" {
		p["pattern"] = ""
	}
	if confirmRe.MatchString(m) {
		p["confirm"] = "true"
	}
	return p
}

func renewableParams(m string) map[string]string {
	p := map[string]string{"project_name": projectName(m)}
	if sm := coordsRe.FindStringSubmatch(m); sm != nil {
		p["latitude"] = sm[1]
		p["longitude"] = sm[2]
	}
	return p
}

func projectName(m string) string {
	for _, re := range []*regexp.Regexp{projectForRe, projectWordRe, projectSlugRe} {
		if name := firstGroup(re, m); name != "" && !projectNameStop[name] {
			return name
		}
	}
	return ""
}

// wellID normalizes any "well-7", "WELL_011" or "well 11" to WELL-007 form.
func wellID(m string) string {
	sm := wellIDRe.FindStringSubmatch(m)
	if sm == nil {
		return ""
	}
	n, err := strconv.Atoi(sm[1])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("WELL-%03d", n)
}

func horizonName(m string) string {
	if name := firstGroup(horizonAfterRe, m); name != "" && !horizonNameStop[name] {
		return name
	}
	if name := firstGroup(horizonPreRe, m); name != "" && !horizonNameStop[name] {
		return name
	}
	return ""
}

// firstGroup returns the first non-empty capture group of re in m.
func firstGroup(re *regexp.Regexp, m string) string {
	sm := re.FindStringSubmatch(m)
	for i := 1; i < len(sm); i++ {
		if sm[i] != "" {
			return sm[i]
		}
	}
	return ""
}
