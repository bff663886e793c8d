package oracle

import (
	"errors"
	"testing"
)

func TestParseStructuredResponse(t *testing.T) {
	raw := []byte(`{
		"files": [
			{"path": "src/Home.tsx", "content": "export default function Home() {}"},
			{"path": "src/components/Button.tsx", "content": "button"}
		],
		"backendFiles": [
			{"path": "api/home.ts", "content": "handler"}
		],
		"registryEntry": {
			"componentName": "Button",
			"path": "src/components/Button.tsx",
			"variants": ["primary"]
		}
	}`)
	art, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(art.UIFiles) != 2 || len(art.APIFiles) != 1 {
		t.Fatalf("files = %d ui / %d api", len(art.UIFiles), len(art.APIFiles))
	}
	if len(art.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(art.Components))
	}
	if got := art.Components[0].Content; got != "button" {
		t.Fatalf("registry entry content should be lifted from its file, got %q", got)
	}
	if !art.OK {
		t.Fatal("artifact not marked OK")
	}
}

func TestParseRegistryRefResponse(t *testing.T) {
	art, err := parseResponse([]byte(`{"registryRef": "Button"}`))
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if art.RegistryRef != "Button" {
		t.Fatalf("registryRef = %q", art.RegistryRef)
	}
	if art.FileCount() != 0 {
		t.Fatal("reference answer should carry no files")
	}
}

func TestParseFencedStructuredResponse(t *testing.T) {
	raw := []byte("Here is your code:\n```json\n{\"files\": [{\"path\": \"a.tsx\", \"content\": \"x\"}]}\n```\nEnjoy!")
	art, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(art.UIFiles) != 1 || art.UIFiles[0].Path != "a.tsx" {
		t.Fatalf("ui files = %+v", art.UIFiles)
	}
}

func TestParseDegradedFileBlocks(t *testing.T) {
	raw := []byte("I could not produce JSON, here are the files.\n\n" +
		"File: src/Home.tsx\n```tsx\nexport default function Home() {}\n```\n\n" +
		"File: server/routes.ts\n```ts\nexport const routes = []\n```\n")
	art, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(art.UIFiles) != 1 {
		t.Fatalf("ui files = %+v", art.UIFiles)
	}
	if len(art.APIFiles) != 1 || art.APIFiles[0].Path != "server/routes.ts" {
		t.Fatalf("api files = %+v", art.APIFiles)
	}
}

func TestParsePathCommentBlocks(t *testing.T) {
	raw := []byte("```tsx\n// src/Cart.tsx\nexport default function Cart() {}\n```")
	art, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if len(art.UIFiles) != 1 || art.UIFiles[0].Path != "src/Cart.tsx" {
		t.Fatalf("ui files = %+v", art.UIFiles)
	}
}

func TestParseUnusableResponse(t *testing.T) {
	for _, raw := range []string{"", "  ", "sorry, I can't help with that", `{"unrelated": true}`} {
		_, err := parseResponse([]byte(raw))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("raw %q: error %v is not ParseError", raw, err)
		}
	}
}

func TestBackendPathClassification(t *testing.T) {
	cases := map[string]bool{
		"src/App.tsx":           false,
		"styles/main.css":       false,
		"src/components/nav.ts": false,
		"src/hooks/useCart.ts":  false,
		"server/index.ts":       true,
		"api/users.js":          true,
		"scripts/migrate.py":    true,
		"README.md":             false,
	}
	for p, want := range cases {
		if got := isBackendPath(p); got != want {
			t.Fatalf("isBackendPath(%q) = %v, want %v", p, got, want)
		}
	}
}
