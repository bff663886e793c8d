package oracle

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"uiforge/internal/registry"
)

// ParseError means a response could not be understood as any of the
// supported shapes, including the degraded free-text fallback. The
// screen that triggered it fails; the job continues.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "unparseable oracle response: " + e.Reason
}

// structuredResponse is the well-formed wire shape.
type structuredResponse struct {
	Files         []FileArtifact       `json:"files"`
	BackendFiles  []FileArtifact       `json:"backendFiles"`
	RegistryEntry *registry.Descriptor `json:"registryEntry"`
	RegistryRef   string               `json:"registryRef"`
}

// parseResponse interprets an oracle response in order of preference:
// a structured JSON document, a registry-reference-only answer, and
// finally heuristic extraction of file blocks from degraded free text.
func parseResponse(raw []byte) (*Artifact, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	if art, ok := parseStructured(text); ok {
		return art, nil
	}

	// Models sometimes wrap the JSON document in markdown fences or
	// surrounding prose; try every fenced json block before degrading.
	for _, block := range fencedJSONBlocks(text) {
		if art, ok := parseStructured(block); ok {
			return art, nil
		}
	}

	if art, ok := parseFreeText(text); ok {
		return art, nil
	}
	return nil, &ParseError{Reason: fmt.Sprintf("no structured document or file blocks in %d bytes", len(text))}
}

func parseStructured(text string) (*Artifact, bool) {
	var resp structuredResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, false
	}
	if resp.RegistryRef != "" {
		return &Artifact{RegistryRef: resp.RegistryRef, Raw: text, OK: true}, true
	}
	if len(resp.Files) == 0 && len(resp.BackendFiles) == 0 && resp.RegistryEntry == nil {
		return nil, false
	}
	art := &Artifact{
		UIFiles:  dropEmptyFiles(resp.Files),
		APIFiles: dropEmptyFiles(resp.BackendFiles),
		Raw:      text,
		OK:       true,
	}
	if resp.RegistryEntry != nil && resp.RegistryEntry.Name != "" {
		desc := resp.RegistryEntry
		desc.Content = contentForPath(art.UIFiles, desc.Path)
		art.Components = []*registry.Descriptor{desc}
	}
	return art, true
}

var (
	reFencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	// "File: path" followed by a fenced block, the original degraded
	// format seen from free-text model output.
	reFileBlock = regexp.MustCompile("(?s)File:\\s*([^\\n]+)\\n```[a-zA-Z]*\\n(.*?)\\n```")
	// A fenced block whose first line is a comment naming the path.
	rePathComment = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(?://|#|/\\*)\\s*([\\w./ -]+\\.[A-Za-z]{1,4})\\s*(?:\\*/)?\\n(.*?)\\n```")
)

func fencedJSONBlocks(text string) []string {
	var out []string
	for _, m := range reFencedJSON.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// parseFreeText pulls path/content pairs out of degraded text output.
func parseFreeText(text string) (*Artifact, bool) {
	art := &Artifact{Raw: text, OK: true}
	add := func(p, content string) {
		p = strings.TrimSpace(p)
		content = strings.TrimSpace(content)
		if p == "" || content == "" {
			return
		}
		f := FileArtifact{Path: p, Content: content}
		if isBackendPath(p) {
			art.APIFiles = append(art.APIFiles, f)
		} else {
			art.UIFiles = append(art.UIFiles, f)
		}
	}
	for _, m := range reFileBlock.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	if art.FileCount() == 0 {
		for _, m := range rePathComment.FindAllStringSubmatch(text, -1) {
			add(m[1], m[2])
		}
	}
	if art.FileCount() == 0 {
		return nil, false
	}
	return art, true
}

// isBackendPath classifies a generated file by extension and location.
// Presentation extensions stay frontend; plain ts/js/py without a
// frontend marker is treated as backend.
func isBackendPath(p string) bool {
	switch path.Ext(p) {
	case ".tsx", ".jsx", ".css", ".scss", ".html":
		return false
	case ".ts", ".js", ".py":
		lower := strings.ToLower(p)
		for _, marker := range []string{"component", "hook", "context", "style", "frontend"} {
			if strings.Contains(lower, marker) {
				return false
			}
		}
		return true
	}
	return false
}

func dropEmptyFiles(files []FileArtifact) []FileArtifact {
	out := files[:0]
	for _, f := range files {
		if strings.TrimSpace(f.Path) == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func contentForPath(files []FileArtifact, p string) string {
	for _, f := range files {
		if f.Path == p {
			return f.Content
		}
	}
	return ""
}
