package merge

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uiforge/internal/chunk"
	"uiforge/internal/design"
	"uiforge/internal/oracle"
	"uiforge/internal/registry"
)

// makeScreens builds one screen per name, already moved to the given
// terminal status.
func makeScreens(t *testing.T, names []string, statuses []chunk.Status) []*chunk.Screen {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(`{"name": "doc", "document": {"id": "root", "type": "DOCUMENT", "children": [`)
	for i, name := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id": "s%d", "type": "FRAME", "name": %q}`, i, name)
	}
	sb.WriteString(`]}}`)
	g, err := design.Load([]byte(sb.String()))
	require.NoError(t, err)

	screens := make([]*chunk.Screen, len(names))
	for i := range names {
		sc, err := chunk.Extract(g, fmt.Sprintf("s%d", i), i)
		require.NoError(t, err)
		switch statuses[i] {
		case chunk.StatusSucceeded:
			require.NoError(t, sc.Transition(chunk.StatusProcessing))
			require.NoError(t, sc.Transition(chunk.StatusSucceeded))
		case chunk.StatusFailed:
			require.NoError(t, sc.Transition(chunk.StatusProcessing))
			require.NoError(t, sc.Fail("boom"))
		case chunk.StatusSkipped:
			require.NoError(t, sc.Transition(chunk.StatusSkipped))
		}
		screens[i] = sc
	}
	return screens
}

func TestMergePartialFailure(t *testing.T) {
	screens := makeScreens(t,
		[]string{"Home", "Cart", "Checkout"},
		[]chunk.Status{chunk.StatusSucceeded, chunk.StatusFailed, chunk.StatusSucceeded},
	)
	artifacts := map[string]*oracle.Artifact{
		"s0": {ScreenID: "s0", OK: true, UIFiles: []oracle.FileArtifact{{Path: "src/Home.tsx", Content: "h"}}},
		"s2": {ScreenID: "s2", OK: true, UIFiles: []oracle.FileArtifact{{Path: "src/Checkout.tsx", Content: "c"}}},
	}

	res := Merge(screens, artifacts, registry.New(), time.Second)

	assert.Equal(t, 3, res.Stats.ScreensAttempted)
	assert.Equal(t, 2, res.Stats.ScreensSucceeded)
	assert.Equal(t, 1, res.Stats.ScreensFailed)

	// One status row per screen, in ordinal order, failures included.
	require.Len(t, res.Screens, 3)
	assert.Equal(t, chunk.StatusFailed, res.Screens[1].Status)
	assert.Equal(t, "boom", res.Screens[1].Error)

	// Navigation only covers what succeeded.
	require.Len(t, res.Navigation, 2)
	assert.Equal(t, "/home", res.Navigation[0].Slug)
	assert.Equal(t, "/checkout", res.Navigation[1].Slug)
	assert.Equal(t, "src/Home.tsx", res.Navigation[0].Entry)
}

func TestMergePathCollisionRenames(t *testing.T) {
	screens := makeScreens(t,
		[]string{"Home", "Cart"},
		[]chunk.Status{chunk.StatusSucceeded, chunk.StatusSucceeded},
	)
	artifacts := map[string]*oracle.Artifact{
		"s0": {ScreenID: "s0", OK: true, UIFiles: []oracle.FileArtifact{{Path: "src/App.tsx", Content: "home"}}},
		"s1": {ScreenID: "s1", OK: true, UIFiles: []oracle.FileArtifact{{Path: "src/App.tsx", Content: "cart"}}},
	}

	res := Merge(screens, artifacts, registry.New(), 0)

	paths := map[string]string{}
	for _, f := range res.UIFiles {
		paths[f.Path] = f.Content
	}
	assert.Equal(t, "home", paths["src/App.tsx"])
	assert.Equal(t, "cart", paths["src/App-2.tsx"])

	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "path collision")
}

func TestMergeAttachesManifests(t *testing.T) {
	screens := makeScreens(t, []string{"Home"}, []chunk.Status{chunk.StatusSucceeded})
	reg := registry.New()
	reg.Register(&registry.Descriptor{Name: "Button", Path: "components/Button.tsx"})

	res := Merge(screens, map[string]*oracle.Artifact{}, reg, 0)

	var haveRegistry, haveNav bool
	for _, f := range res.UIFiles {
		switch f.Path {
		case "component-registry.json":
			haveRegistry = true
			assert.Contains(t, f.Content, `"componentName": "Button"`)
		case "navigation.json":
			haveNav = true
		}
	}
	assert.True(t, haveRegistry, "registry manifest missing")
	assert.True(t, haveNav, "navigation manifest missing")
	assert.Equal(t, len(res.UIFiles)+len(res.APIFiles), res.Stats.TotalFiles)
}

func TestBuildNavigationSlugCollision(t *testing.T) {
	screens := makeScreens(t,
		[]string{"Home", "home ", "Order History"},
		[]chunk.Status{chunk.StatusSucceeded, chunk.StatusSucceeded, chunk.StatusSucceeded},
	)
	routes := BuildNavigation(screens, map[string]*oracle.Artifact{})
	require.Len(t, routes, 3)
	assert.Equal(t, "/home", routes[0].Slug)
	assert.Equal(t, "/home-2", routes[1].Slug)
	assert.Equal(t, "/order-history", routes[2].Slug)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Home":           "home",
		"  Order  List ": "order-list",
		"":               "screen",
		"   ":            "screen",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}
