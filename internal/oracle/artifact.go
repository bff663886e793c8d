package oracle

import (
	"time"

	"uiforge/internal/registry"
)

// Options select what the generator should produce for a screen.
type Options struct {
	Framework        string `json:"framework"`
	BackendFramework string `json:"backendFramework"`
	IncludeTests     bool   `json:"includeTests"`
	IncludeDocs      bool   `json:"includeDocs"`
	UserMessage      string `json:"userMessage,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.Framework == "" {
		o.Framework = "react"
	}
	if o.BackendFramework == "" {
		o.BackendFramework = "nodejs"
	}
	return o
}

// FileArtifact is one generated source file.
type FileArtifact struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Artifact is everything one screen's generation call produced.
type Artifact struct {
	ScreenID string
	// UIFiles and APIFiles are the generated frontend and backend
	// sources in response order.
	UIFiles  []FileArtifact
	APIFiles []FileArtifact
	// Components are the descriptors the response declared.
	Components []*registry.Descriptor
	// RegistryRef is set instead of files when the oracle answered
	// with a reference to an already known component.
	RegistryRef string
	// Raw is the unparsed oracle response, kept for diagnostics.
	Raw     string
	OK      bool
	Error   string
	Elapsed time.Duration
}

// FileCount returns the number of generated files in the artifact.
func (a *Artifact) FileCount() int {
	return len(a.UIFiles) + len(a.APIFiles)
}
