package oracle

import (
	"fmt"
	"strings"
)

// buildPrompt assembles the system prompt for one screen generation
// call. Known component names are included so the oracle can answer
// with a registryRef instead of regenerating a component it has
// already seen in a sibling screen.
func buildPrompt(screenName string, known []string, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Generate %s frontend + %s backend for screen: %s\n\n",
		opts.Framework, opts.BackendFramework, screenName)

	b.WriteString("## Instructions\n")
	b.WriteString("1. Generate clean, production-ready frontend code for the screen subtree in the input JSON.\n")
	b.WriteString("2. Generate the backend API endpoints the screen needs.\n")
	if opts.IncludeTests {
		b.WriteString("3. Include unit tests next to each generated file.\n")
	}
	if opts.IncludeDocs {
		b.WriteString("4. Include doc comments on every exported symbol.\n")
	}
	b.WriteString("\n")

	if len(known) > 0 {
		b.WriteString("## Known components\n")
		b.WriteString("These components already exist. If this screen is essentially one of them, ")
		b.WriteString("respond with {\"registryRef\": \"<componentName>\"} and nothing else.\n")
		for _, name := range known {
			b.WriteString("- " + name + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Output format\n")
	b.WriteString("Return a single JSON object:\n")
	b.WriteString(`{
  "files": [{"path": "src/components/Example.tsx", "content": "..."}],
  "backendFiles": [{"path": "src/routes/example.ts", "content": "..."}],
  "registryEntry": {
    "componentName": "Example",
    "path": "src/components/Example.tsx",
    "variants": ["desktop", "mobile"],
    "tokens": ["--color-primary"],
    "screensUsed": ["` + screenName + `"],
    "dependencies": []
  }
}
`)

	if opts.UserMessage != "" {
		b.WriteString("\n## User requirements\n")
		b.WriteString(opts.UserMessage)
		b.WriteString("\n")
	}
	return b.String()
}
