package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFirstWriterWins(t *testing.T) {
	r := New()

	first, created := r.Register(&Descriptor{
		Name:        "Button",
		Path:        "components/Button.tsx",
		Content:     "export const Button = () => null",
		ScreensUsed: []string{"Home"},
	})
	require.True(t, created)
	require.NotNil(t, first)

	// Same component from a later screen, different rendering.
	second, created := r.Register(&Descriptor{
		Name:        "button",
		Path:        "widgets/Button.tsx",
		Content:     "export const Button = () => <div/>",
		Variants:    []string{"primary"},
		ScreensUsed: []string{"Cart"},
	})
	require.False(t, created)

	assert.Equal(t, "components/Button.tsx", second.Path)
	assert.Equal(t, "export const Button = () => null", second.Content)
	assert.ElementsMatch(t, []string{"Home", "Cart"}, second.ScreensUsed)
	assert.Equal(t, []string{"primary"}, second.Variants)

	warnings := r.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"Button"`)
}

func TestRegisterSameContentNoWarning(t *testing.T) {
	r := New()
	d := &Descriptor{Name: "Card", Path: "components/Card.tsx", Content: "x"}
	r.Register(d)
	r.Register(d)
	assert.Empty(t, r.Warnings())
	assert.Len(t, r.Components(), 1)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Normalize("Button"), Normalize("  button "))
	assert.Equal(t, Normalize("NavBar"), Normalize("NAVBAR"))

	r := New()
	_, created := r.Register(&Descriptor{Name: "  "})
	assert.False(t, created)
}

func TestResolveAndUsage(t *testing.T) {
	r := New()
	r.Register(&Descriptor{Name: "Modal", Path: "components/Modal.tsx"})

	d, ok := r.Resolve("MODAL")
	require.True(t, ok)
	assert.Equal(t, "Modal", d.Name)

	require.True(t, r.RecordUsage("modal", "Checkout"))
	require.True(t, r.RecordUsage("modal", "Checkout")) // set semantics
	d, _ = r.Resolve("Modal")
	assert.Equal(t, []string{"Checkout"}, d.ScreensUsed)

	assert.False(t, r.RecordUsage("ghost", "Home"))

	// Returned descriptors are copies.
	d.Path = "mutated"
	again, _ := r.Resolve("Modal")
	assert.Equal(t, "components/Modal.tsx", again.Path)
}

func TestKnownKeepsRegistrationOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		r.Register(&Descriptor{Name: name, Path: name + ".tsx"})
	}
	// Known reports the names as registered, not the normalized keys;
	// the original casing is what goes into prompts.
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, r.Known())
}

func TestRegisterConcurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(&Descriptor{Name: "Shared", Path: "Shared.tsx", Content: "same"})
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Components(), 1)
	assert.Empty(t, r.Warnings())
}
