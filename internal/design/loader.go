package design

import (
	"encoding/json"
	"fmt"
)

// MalformedInputError reports a structurally invalid design document.
// It aborts the whole job; nothing downstream runs on a bad graph.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "malformed design input: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedInputError{Reason: fmt.Sprintf(format, args...)}
}

// rawNode mirrors the wire shape of one document node. A node entry is
// either an inline definition (id/type/...) or a reference to an
// already defined node via refId. References are how documents share
// asset leaves between screens.
type rawNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	RefID    string            `json:"refId"`
	Shared   bool              `json:"shared"`
	Box      Rect              `json:"box"`
	Styles   map[string]string `json:"styles"`
	Children []rawNode         `json:"children"`
}

type rawDocument struct {
	Name     string   `json:"name"`
	Document *rawNode `json:"document"`
}

// Load parses a raw design document into an immutable Graph.
//
// Validation is done here and nowhere else: required fields, duplicate
// ids, dangling refId references, and cycles. Cycles are detected with
// an explicit visited-set walk; they are possible whenever a document
// references a node that is an ancestor of the reference site.
func Load(raw []byte) (*Graph, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed("invalid json: %v", err)
	}
	if doc.Name == "" {
		return nil, malformed("missing required field: name")
	}
	if doc.Document == nil {
		return nil, malformed("missing required field: document")
	}

	byID := map[string]*Node{}
	type pendingRef struct {
		parent *Node
		idx    int
		refID  string
	}
	var refs []pendingRef

	var build func(rn *rawNode) (*Node, error)
	build = func(rn *rawNode) (*Node, error) {
		if rn.RefID != "" {
			// Resolved after the full first pass; leave a hole for now.
			return nil, nil
		}
		if rn.ID == "" {
			return nil, malformed("node without id (name=%q)", rn.Name)
		}
		if rn.Type == "" {
			return nil, malformed("node %s has no type", rn.ID)
		}
		if _, dup := byID[rn.ID]; dup {
			return nil, malformed("duplicate node id %s", rn.ID)
		}
		n := &Node{
			ID:     rn.ID,
			Type:   rn.Type,
			Name:   rn.Name,
			Box:    rn.Box,
			Styles: rn.Styles,
			Shared: rn.Shared,
		}
		byID[rn.ID] = n
		for i := range rn.Children {
			child := &rn.Children[i]
			built, err := build(child)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, built)
			if built == nil {
				refs = append(refs, pendingRef{parent: n, idx: len(n.Children) - 1, refID: child.RefID})
			}
		}
		return n, nil
	}

	root, err := build(doc.Document)
	if err != nil {
		return nil, err
	}

	for _, r := range refs {
		target, ok := byID[r.refID]
		if !ok {
			return nil, malformed("dangling node reference %s", r.refID)
		}
		target.Shared = true
		r.parent.Children[r.idx] = target
	}

	if err := detectCycle(root); err != nil {
		return nil, err
	}

	return &Graph{
		Name:  doc.Name,
		Root:  root,
		count: root.Subtree(),
		byID:  byID,
	}, nil
}

// detectCycle walks the graph keeping the current ancestor chain.
// A node that shows up in its own ancestor set means the document
// references upward; that graph cannot be processed.
func detectCycle(root *Node) error {
	onPath := map[*Node]struct{}{}
	done := map[*Node]struct{}{}
	var rec func(n *Node) error
	rec = func(n *Node) error {
		if _, ok := onPath[n]; ok {
			return malformed("cycle detected at node %s", n.ID)
		}
		if _, ok := done[n]; ok {
			return nil
		}
		onPath[n] = struct{}{}
		for _, c := range n.Children {
			if err := rec(c); err != nil {
				return err
			}
		}
		delete(onPath, n)
		done[n] = struct{}{}
		return nil
	}
	return rec(root)
}
