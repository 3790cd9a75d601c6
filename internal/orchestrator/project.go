package orchestrator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"siteflow/internal/domain"
)

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe  = regexp.MustCompile(`-+`)
)

const maxSlugLen = 64

// Slugify turns a free-form project name into the key used by every store
// backend: lowercase letters, digits and single hyphens.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.NewReplacer(" ", "-", "_", "-", ".", "-").Replace(slug)
	slug = slugInvalidRe.ReplaceAllString(slug, "")
	slug = slugDashesRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// projectNameFor picks the project a message refers to: one named in the
// message, else the caller's active project.
func projectNameFor(in domain.Intent, req Request) string {
	if name := Slugify(in.Param("project_name")); name != "" {
		return name
	}
	return Slugify(req.ProjectName)
}

// coordinateProjectName derives a stable project name from a site location,
// e.g. 35.067482, -101.395466 becomes wind-farm-35-067n-101-395w.
func coordinateProjectName(params map[string]string) string {
	c := coordinatesOf(params)
	if c == nil {
		return ""
	}
	return fmt.Sprintf("wind-farm-%s-%s",
		hemisphere(c.Latitude, "n", "s"),
		hemisphere(c.Longitude, "e", "w"))
}

func hemisphere(v float64, pos, neg string) string {
	suffix := pos
	if v < 0 {
		suffix = neg
	}
	return strings.ReplaceAll(fmt.Sprintf("%.3f", math.Abs(v)), ".", "-") + suffix
}

func coordinatesOf(params map[string]string) *domain.Coordinates {
	lat, err := strconv.ParseFloat(params["latitude"], 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(params["longitude"], 64)
	if err != nil {
		return nil
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}
}
