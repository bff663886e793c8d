package merge

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"uiforge/internal/chunk"
	"uiforge/internal/oracle"
	"uiforge/internal/registry"
)

// Stats summarizes one job.
type Stats struct {
	ScreensAttempted int           `json:"screensAttempted"`
	ScreensSucceeded int           `json:"screensSucceeded"`
	ScreensFailed    int           `json:"screensFailed"`
	ScreensSkipped   int           `json:"screensSkipped"`
	TotalFiles       int           `json:"totalFiles"`
	Elapsed          time.Duration `json:"elapsed"`
	OracleCalls      int           `json:"oracleCalls"`
	CostUnits        int           `json:"costUnits"`
}

// ScreenStatus is one row of the per-screen status table. The table has
// exactly one entry per extracted screen, whatever happened to it.
type ScreenStatus struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Ordinal int           `json:"ordinal"`
	Status  chunk.Status  `json:"status"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Result is the merged output of one job.
type Result struct {
	UIFiles    []oracle.FileArtifact  `json:"uiFiles"`
	APIFiles   []oracle.FileArtifact  `json:"apiFiles"`
	Components []*registry.Descriptor `json:"components"`
	Navigation []Route                `json:"navigation"`
	Screens    []ScreenStatus         `json:"screens"`
	Stats      Stats                  `json:"stats"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// Merge combines all artifacts, the final registry, and the navigation
// map. Files are concatenated in screen-ordinal order; when two screens
// produced the same path, the first occurrence is kept as-is and the
// later one is renamed with its screen's ordinal suffix, recorded as a
// warning. Nothing a SUCCEEDED screen produced is ever dropped.
func Merge(screens []*chunk.Screen, artifacts map[string]*oracle.Artifact, reg *registry.Registry, elapsed time.Duration) *Result {
	ordered := append([]*chunk.Screen(nil), screens...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	res := &Result{}
	seen := map[string]struct{}{}

	appendFiles := func(dst *[]oracle.FileArtifact, files []oracle.FileArtifact, ordinal int) {
		for _, f := range files {
			if _, clash := seen[f.Path]; clash {
				renamed := ordinalSuffix(f.Path, ordinal)
				for n := 2; ; n++ {
					if _, still := seen[renamed]; !still {
						break
					}
					renamed = ordinalSuffix(f.Path, ordinal) // base form
					ext := path.Ext(renamed)
					renamed = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(renamed, ext), n, ext)
				}
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"path collision: %s from screen #%d kept as %s", f.Path, ordinal, renamed))
				f.Path = renamed
			}
			seen[f.Path] = struct{}{}
			*dst = append(*dst, f)
		}
	}

	for _, s := range ordered {
		status := ScreenStatus{
			ID:      s.ID,
			Name:    s.Name,
			Ordinal: s.Ordinal,
			Status:  s.Status(),
			Error:   s.Failure(),
		}
		art := artifacts[s.ID]
		if art != nil {
			status.Elapsed = art.Elapsed
		}
		res.Screens = append(res.Screens, status)

		switch s.Status() {
		case chunk.StatusSucceeded:
			res.Stats.ScreensAttempted++
			res.Stats.ScreensSucceeded++
			if art != nil {
				appendFiles(&res.UIFiles, art.UIFiles, s.Ordinal)
				appendFiles(&res.APIFiles, art.APIFiles, s.Ordinal)
			}
		case chunk.StatusFailed:
			res.Stats.ScreensAttempted++
			res.Stats.ScreensFailed++
		case chunk.StatusSkipped:
			res.Stats.ScreensSkipped++
		}
	}

	res.Components = reg.Components()
	res.Navigation = BuildNavigation(ordered, artifacts)
	res.Warnings = append(res.Warnings, reg.Warnings()...)
	res.Stats.Elapsed = elapsed
	res.Stats.TotalFiles = len(res.UIFiles) + len(res.APIFiles)

	attachManifests(res)
	return res
}

// attachManifests emits the registry and navigation as files alongside
// the generated sources, so a persisted result is a complete project.
func attachManifests(res *Result) {
	if regJSON, err := json.MarshalIndent(res.Components, "", "  "); err == nil {
		res.UIFiles = append(res.UIFiles, oracle.FileArtifact{
			Path:    "component-registry.json",
			Content: string(regJSON),
		})
	}
	if navJSON, err := json.MarshalIndent(res.Navigation, "", "  "); err == nil {
		res.UIFiles = append(res.UIFiles, oracle.FileArtifact{
			Path:    "navigation.json",
			Content: string(navJSON),
		})
	}
	res.Stats.TotalFiles = len(res.UIFiles) + len(res.APIFiles)
}

// ordinalSuffix renames a colliding path deterministically:
// src/App.tsx from screen ordinal 2 becomes src/App-3.tsx.
func ordinalSuffix(p string, ordinal int) string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	return fmt.Sprintf("%s-%d%s", base, ordinal+1, ext)
}
