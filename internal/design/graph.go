package design

// Graph is a loaded design document. It is created once by Load and
// never mutated afterwards; downstream stages copy what they need.
type Graph struct {
	Name  string
	Root  *Node
	count int
	byID  map[string]*Node
}

// NodeCount returns the total number of distinct nodes in the document.
func (g *Graph) NodeCount() int { return g.count }

// NodeByID looks a node up by its document id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// PathTo returns the names of the ancestors of id, root first, not
// including the node itself. ok is false when id is unknown.
func (g *Graph) PathTo(id string) (path []string, ok bool) {
	target, found := g.byID[id]
	if !found {
		return nil, false
	}
	var rec func(cur *Node, trail []string) []string
	rec = func(cur *Node, trail []string) []string {
		if cur == target {
			out := make([]string, len(trail))
			copy(out, trail)
			return out
		}
		for _, c := range cur.Children {
			if got := rec(c, append(trail, cur.Name)); got != nil {
				return got
			}
		}
		return nil
	}
	path = rec(g.Root, nil)
	return path, path != nil
}
