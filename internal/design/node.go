package design

// Node is one element of a design document: a frame, group, text run,
// vector, or asset. A parent owns its children exclusively, except for
// shared-asset leaves which may be referenced from several parents.
type Node struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	Children []*Node `json:"children,omitempty"`

	Box    Rect              `json:"box"`
	Styles map[string]string `json:"styles,omitempty"`

	// Shared marks an asset leaf that is deliberately referenced from
	// more than one place in the document.
	Shared bool `json:"shared,omitempty"`
}

// Rect is the absolute bounding box of a node in the design canvas.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Walk visits n and every node reachable through children, once each.
// Shared-asset leaves referenced from multiple parents are visited once.
func (n *Node) Walk(fn func(*Node)) {
	seen := map[*Node]struct{}{}
	var rec func(*Node)
	rec = func(cur *Node) {
		if cur == nil {
			return
		}
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		fn(cur)
		for _, c := range cur.Children {
			rec(c)
		}
	}
	rec(n)
}

// Subtree returns the number of nodes reachable from n, n included.
func (n *Node) Subtree() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

// IDs returns the set of node ids reachable from n.
func (n *Node) IDs() map[string]struct{} {
	out := map[string]struct{}{}
	n.Walk(func(c *Node) { out[c.ID] = struct{}{} })
	return out
}

// Clone deep-copies the subtree rooted at n. Shared-asset leaves are
// copied too, so the result never aliases the source document. A leaf
// referenced twice inside the subtree stays a single (copied) node.
func (n *Node) Clone() *Node {
	return n.cloneInto(map[*Node]*Node{})
}

func (n *Node) cloneInto(copies map[*Node]*Node) *Node {
	if n == nil {
		return nil
	}
	if cp, ok := copies[n]; ok {
		return cp
	}
	cp := &Node{
		ID:     n.ID,
		Type:   n.Type,
		Name:   n.Name,
		Box:    n.Box,
		Shared: n.Shared,
	}
	copies[n] = cp
	if n.Styles != nil {
		cp.Styles = make(map[string]string, len(n.Styles))
		for k, v := range n.Styles {
			cp.Styles[k] = v
		}
	}
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			cp.Children = append(cp.Children, c.cloneInto(copies))
		}
	}
	return cp
}
