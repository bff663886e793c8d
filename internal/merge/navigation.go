package merge

import (
	"fmt"
	"sort"
	"strings"

	"uiforge/internal/chunk"
	"uiforge/internal/oracle"
)

// Route maps one succeeded screen to its slug and entry file.
type Route struct {
	Screen   string `json:"screen"`
	ScreenID string `json:"screenId"`
	Slug     string `json:"slug"`
	Entry    string `json:"entry,omitempty"`
}

// BuildNavigation produces the route map from SUCCEEDED screens in
// ordinal order. FAILED and SKIPPED screens are left out, so a partial
// job still yields a navigable application among the screens that made
// it. Slug collisions are disambiguated deterministically with the
// colliding screen's ordinal.
func BuildNavigation(screens []*chunk.Screen, artifacts map[string]*oracle.Artifact) []Route {
	ordered := make([]*chunk.Screen, 0, len(screens))
	for _, s := range screens {
		if s.Status() == chunk.StatusSucceeded {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	taken := map[string]struct{}{}
	routes := make([]Route, 0, len(ordered))
	for _, s := range ordered {
		slug := Slugify(s.Name)
		if _, clash := taken[slug]; clash {
			base := slug
			for n := s.Ordinal + 1; ; n++ {
				slug = fmt.Sprintf("%s-%d", base, n)
				if _, still := taken[slug]; !still {
					break
				}
			}
		}
		taken[slug] = struct{}{}

		entry := ""
		if art := artifacts[s.ID]; art != nil && len(art.UIFiles) > 0 {
			entry = art.UIFiles[0].Path
		}
		routes = append(routes, Route{
			Screen:   s.Name,
			ScreenID: s.ID,
			Slug:     "/" + slug,
			Entry:    entry,
		})
	}
	return routes
}

// Slugify lowercases a screen name, trims it, and turns space runs
// into single hyphens.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "screen"
	}
	return strings.Join(fields, "-")
}
