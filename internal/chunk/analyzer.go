package chunk

import (
	"fmt"

	"uiforge/internal/design"
)

// DefaultMaxSplitDepth bounds how many times an oversized screen may be
// re-split into virtual sub-screens before giving up on that subtree.
const DefaultMaxSplitDepth = 3

// Config controls screen discovery and re-splitting.
type Config struct {
	// Capacity is the maximum node count one screen may carry.
	Capacity int
	// MaxDepth is the recursive re-split bound for oversized screens.
	MaxDepth int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = design.DefaultNodeThreshold
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxSplitDepth
	}
	return c
}

// OversizedScreenError reports a subtree that could not be split down
// to capacity within the recursion bound. It is scoped to that one
// subtree; sibling screens are unaffected.
type OversizedScreenError struct {
	ScreenID  string
	Name      string
	NodeCount int
	Depth     int
}

func (e *OversizedScreenError) Error() string {
	return fmt.Sprintf("screen %s (%s): %d nodes still over capacity after %d split levels",
		e.ScreenID, e.Name, e.NodeCount, e.Depth)
}

// SplitResult is the analyzer output: extracted screens in stable
// document order, the ids of structural containers and shared assets
// (the only permitted overlap between screens), and scoped errors for
// subtrees that could not be made to fit.
type SplitResult struct {
	Screens []*Screen
	// SharedIDs are node ids allowed to appear in more than one
	// screen: document/page containers and shared-asset leaves, plus
	// the roots of re-split screens which every part carries.
	SharedIDs map[string]struct{}
	// Dropped maps a failed subtree root id to its node-id set, so
	// callers can account for every node even when a split fails.
	Dropped map[string]map[string]struct{}
	// Errors holds one OversizedScreenError per dropped subtree.
	Errors []error
}

// Split identifies screen roots in a CHUNKED graph and extracts one
// screen per root. The roots are the document's top-level frames: for
// documents organized as pages (CANVAS children), the frames inside
// each page; otherwise the document's direct children. Any screen
// still over capacity is recursively re-split into virtual
// sub-screens, bounded by cfg.MaxDepth.
func Split(g *design.Graph, cfg Config) (*SplitResult, error) {
	cfg = cfg.withDefaults()
	res := &SplitResult{
		SharedIDs: map[string]struct{}{},
		Dropped:   map[string]map[string]struct{}{},
	}
	res.SharedIDs[g.Root.ID] = struct{}{}

	var roots []*design.Node
	for _, child := range g.Root.Children {
		if child.Type == "CANVAS" {
			// Page container: its children are the screen roots.
			res.SharedIDs[child.ID] = struct{}{}
			roots = append(roots, child.Children...)
			continue
		}
		roots = append(roots, child)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("split: document %s has no screen roots", g.Name)
	}

	// Shared-asset leaves may legitimately appear under several roots.
	g.Root.Walk(func(n *design.Node) {
		if n.Shared {
			res.SharedIDs[n.ID] = struct{}{}
		}
	})

	ordinal := 0
	for _, root := range roots {
		if root.Subtree() <= cfg.Capacity {
			sc, err := Extract(g, root.ID, ordinal)
			if err != nil {
				return nil, err
			}
			res.Screens = append(res.Screens, sc)
			ordinal++
			continue
		}
		path, _ := g.PathTo(root.ID)
		ordinal = splitOversized(root, path, 1, ordinal, cfg, res)
	}
	return res, nil
}

// splitOversized partitions the children of an oversized node into
// capacity-bounded virtual sub-screens, recursing into any child whose
// own subtree exceeds capacity. Returns the next free ordinal.
func splitOversized(node *design.Node, path []string, depth, ordinal int, cfg Config, res *SplitResult) int {
	if depth > cfg.MaxDepth || len(node.Children) == 0 {
		res.Errors = append(res.Errors, &OversizedScreenError{
			ScreenID:  node.ID,
			Name:      displayName(node),
			NodeCount: node.Subtree(),
			Depth:     cfg.MaxDepth,
		})
		res.Dropped[node.ID] = node.IDs()
		return ordinal
	}

	// Every part shares the split node as its wrapper root.
	res.SharedIDs[node.ID] = struct{}{}
	childPath := append(append([]string{}, path...), displayName(node))

	part := 1
	var group []*design.Node
	groupSize := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		res.Screens = append(res.Screens, newVirtualScreen(node, group, part, ordinal, path))
		part++
		ordinal++
		group = nil
		groupSize = 0
	}

	for _, child := range node.Children {
		size := child.Subtree()
		if size > cfg.Capacity-1 {
			flush()
			ordinal = splitOversized(child, childPath, depth+1, ordinal, cfg, res)
			continue
		}
		if groupSize+size > cfg.Capacity-1 {
			flush()
		}
		group = append(group, child)
		groupSize += size
	}
	flush()
	return ordinal
}
