package chunk

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"uiforge/internal/design"
)

// buildGraph assembles a document with one canvas holding frames of the
// given widths (leaf counts per frame).
func buildGraph(t *testing.T, widths ...int) *design.Graph {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(`{"name": "doc", "document": {"id": "root", "type": "DOCUMENT", "children": [`)
	sb.WriteString(`{"id": "page", "type": "CANVAS", "name": "Page 1", "children": [`)
	for i, w := range widths {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id": "f%d", "type": "FRAME", "name": "Frame %d", "children": [`, i, i)
		for j := 0; j < w; j++ {
			if j > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"id": "f%d-n%d", "type": "RECTANGLE"}`, i, j)
		}
		sb.WriteString(`]}`)
	}
	sb.WriteString(`]}]}}`)
	g, err := design.Load([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

func TestSplitFindsCanvasFrames(t *testing.T) {
	g := buildGraph(t, 3, 5, 2)
	res, err := Split(g, Config{Capacity: 100})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Screens) != 3 {
		t.Fatalf("screens = %d, want 3", len(res.Screens))
	}
	for i, sc := range res.Screens {
		if sc.Ordinal != i {
			t.Fatalf("screen %s ordinal = %d, want %d", sc.ID, sc.Ordinal, i)
		}
		if sc.Virtual {
			t.Fatalf("screen %s should not be virtual", sc.ID)
		}
	}
	if res.Screens[1].NodeCount != 6 {
		t.Fatalf("f1 node count = %d, want 6", res.Screens[1].NodeCount)
	}
	if res.Screens[0].Path[len(res.Screens[0].Path)-1] != "Page 1" {
		t.Fatalf("screen path should end at the page, got %v", res.Screens[0].Path)
	}
}

func TestSplitScreensAreSelfContained(t *testing.T) {
	g := buildGraph(t, 2, 2)
	res, err := Split(g, Config{Capacity: 100})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	orig, _ := g.NodeByID("f0")
	if res.Screens[0].Root == orig {
		t.Fatal("screen root aliases the source graph")
	}
	res.Screens[0].Root.Name = "mutated"
	if orig.Name == "mutated" {
		t.Fatal("mutating a screen leaked into the source graph")
	}
}

// Coverage: with shared ids and dropped subtrees accounted for, the
// screens partition the graph with no node lost and no node in two
// screens.
func TestSplitCoverageAndDisjointness(t *testing.T) {
	g := buildGraph(t, 4, 12, 3)
	res, err := Split(g, Config{Capacity: 6, MaxDepth: 2})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	covered := map[string]int{}
	for _, sc := range res.Screens {
		for id := range sc.IDSet() {
			if sc.Virtual && id == sc.ID {
				continue // synthetic wrapper id, not a graph node
			}
			covered[id]++
		}
	}
	for id, n := range covered {
		if n > 1 {
			if _, shared := res.SharedIDs[id]; !shared {
				t.Fatalf("node %s appears in %d screens and is not shared", id, n)
			}
		}
	}

	all := g.Root.IDs()
	for id := range all {
		if _, ok := covered[id]; ok {
			continue
		}
		if _, ok := res.SharedIDs[id]; ok {
			continue
		}
		dropped := false
		for _, set := range res.Dropped {
			if _, ok := set[id]; ok {
				dropped = true
				break
			}
		}
		if !dropped {
			t.Fatalf("node %s is in no screen, not shared, not dropped", id)
		}
	}
}

func TestSplitOversizedScreenIntoParts(t *testing.T) {
	g := buildGraph(t, 12)
	res, err := Split(g, Config{Capacity: 6})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Screens) < 2 {
		t.Fatalf("oversized frame should yield multiple parts, got %d", len(res.Screens))
	}
	for _, sc := range res.Screens {
		if !sc.Virtual {
			t.Fatalf("part %s should be virtual", sc.ID)
		}
		if !strings.HasPrefix(sc.ID, "f0#") {
			t.Fatalf("part id %s should derive from the split root", sc.ID)
		}
		if sc.NodeCount > 6 {
			t.Fatalf("part %s carries %d nodes, over capacity", sc.ID, sc.NodeCount)
		}
	}
	if _, ok := res.SharedIDs["f0"]; !ok {
		t.Fatal("split root must be recorded as shared")
	}
}

func TestSplitDepthBoundDropsSubtree(t *testing.T) {
	// A single deep chain cannot be partitioned: each level has one
	// child whose subtree is over capacity, so recursion hits MaxDepth.
	raw := `{"name": "deep", "document": {"id": "root", "type": "DOCUMENT", "children": [
		{"id": "f", "type": "FRAME", "children": [
			{"id": "l1", "type": "GROUP", "children": [
				{"id": "l2", "type": "GROUP", "children": [
					{"id": "l3", "type": "GROUP", "children": [
						{"id": "a", "type": "RECTANGLE"}, {"id": "b", "type": "RECTANGLE"},
						{"id": "c", "type": "RECTANGLE"}, {"id": "d", "type": "RECTANGLE"}
					]}
				]}
			]}
		]}
	]}}`
	g, err := design.Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := Split(g, Config{Capacity: 3, MaxDepth: 2})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected an oversized-screen error")
	}
	var ose *OversizedScreenError
	if !errors.As(res.Errors[0], &ose) {
		t.Fatalf("error %T is not OversizedScreenError", res.Errors[0])
	}
	if len(res.Dropped[ose.ScreenID]) == 0 {
		t.Fatalf("dropped subtree %s has no node accounting", ose.ScreenID)
	}
}

func TestSplitWithoutCanvasUsesDocumentChildren(t *testing.T) {
	raw := `{"name": "flat", "document": {"id": "root", "type": "DOCUMENT", "children": [
		{"id": "a", "type": "FRAME", "name": "A"},
		{"id": "b", "type": "FRAME", "name": "B"}
	]}}`
	g, err := design.Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := Split(g, Config{Capacity: 100})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.Screens) != 2 {
		t.Fatalf("screens = %d, want 2", len(res.Screens))
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	raw := `{"name": "empty", "document": {"id": "root", "type": "DOCUMENT"}}`
	g, err := design.Load([]byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Split(g, Config{}); err == nil {
		t.Fatal("expected error for document with no screen roots")
	}
}

func TestScreenStatusTransitions(t *testing.T) {
	g := buildGraph(t, 2)
	sc, err := Extract(g, "f0", 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sc.Status() != StatusPending {
		t.Fatalf("initial status = %s", sc.Status())
	}
	if err := sc.Transition(StatusSucceeded); err == nil {
		t.Fatal("PENDING -> SUCCEEDED must be rejected")
	}
	if err := sc.Transition(StatusProcessing); err != nil {
		t.Fatalf("PENDING -> PROCESSING: %v", err)
	}
	if err := sc.Fail("oracle exploded"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if !sc.Status().Terminal() {
		t.Fatal("FAILED should be terminal")
	}
	if err := sc.Transition(StatusProcessing); err == nil {
		t.Fatal("terminal status must not transition")
	}
	if sc.Failure() != "oracle exploded" {
		t.Fatalf("failure = %q", sc.Failure())
	}
}
