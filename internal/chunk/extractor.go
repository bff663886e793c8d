package chunk

import (
	"fmt"

	"uiforge/internal/design"
)

// Extract materializes the screen rooted at rootID as a self-contained
// subtree copy. The copy never aliases the source graph, so screens can
// be marshaled and shipped to the generator independently.
func Extract(g *design.Graph, rootID string, ordinal int) (*Screen, error) {
	root, ok := g.NodeByID(rootID)
	if !ok {
		return nil, fmt.Errorf("extract: unknown screen root %s", rootID)
	}
	path, _ := g.PathTo(rootID)
	cp := root.Clone()
	name := root.Name
	if name == "" {
		name = root.ID
	}
	return &Screen{
		ID:        root.ID,
		Name:      name,
		Root:      cp,
		NodeCount: cp.Subtree(),
		Ordinal:   ordinal,
		Path:      path,
		status:    StatusPending,
	}, nil
}

// newVirtualScreen wraps a group of children of an oversized node in a
// shallow copy of that node. The derived id keeps the part index so two
// parts of the same screen stay distinguishable and deterministic.
func newVirtualScreen(parent *design.Node, children []*design.Node, part, ordinal int, path []string) *Screen {
	wrapper := &design.Node{
		ID:     fmt.Sprintf("%s#%d", parent.ID, part),
		Type:   parent.Type,
		Name:   fmt.Sprintf("%s (part %d)", displayName(parent), part),
		Box:    parent.Box,
		Shared: parent.Shared,
	}
	for _, c := range children {
		wrapper.Children = append(wrapper.Children, c.Clone())
	}
	return &Screen{
		ID:        wrapper.ID,
		Name:      wrapper.Name,
		Root:      wrapper,
		NodeCount: wrapper.Subtree(),
		Ordinal:   ordinal,
		Path:      path,
		Virtual:   true,
		status:    StatusPending,
	}
}

func displayName(n *design.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
