package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/registry"
)

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)
	assert.Equal(t, []string{
		"branch", "combine", "concat", "documents", "for_each", "group_by",
		"if", "order_by", "paginate", "take", "where",
	}, r.Names())

	mods, err := r.Build("p", []any{
		map[string]any{"if": map[string]any{
			"key":     "draft",
			"equals":  "yes",
			"modules": []any{map[string]any{"take": map[string]any{"count": 1}}},
			"else":    []any{map[string]any{"where": map[string]any{"glob": "*.md"}}},
		}},
	})
	require.NoError(t, err)
	chains := engine.ChildChains(mods[0])
	require.Len(t, chains, 2)
	assert.Equal(t, "else", chains[1].Label)
	assert.Equal(t, "take", engine.ModuleName(chains[0].Modules[0]))
}

func TestRegisterValidation(t *testing.T) {
	r := registry.New()
	Register(r)
	for _, spec := range []any{
		map[string]any{"where": map[string]any{}},
		map[string]any{"where": map[string]any{"glob": "[unterminated"}},
		map[string]any{"order_by": nil},
		map[string]any{"paginate": map[string]any{"size": 0}},
		map[string]any{"group_by": nil},
		map[string]any{"take": map[string]any{"count": "x"}},
	} {
		_, err := r.Build("p", []any{spec})
		assert.Error(t, err, "%v", spec)
	}
}
