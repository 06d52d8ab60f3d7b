package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainModule struct{ ModuleFunc }

func TestModuleName(t *testing.T) {
	assert.Equal(t, "markdown", ModuleName(Named("markdown", ModuleFunc(nil))))
	assert.Equal(t, "plainModule", ModuleName(&plainModule{}))
	assert.Equal(t, "ModuleFunc", ModuleName(ModuleFunc(nil)))
}

func TestAsModuleErrorReturnsInnermost(t *testing.T) {
	cause := errors.New("cause")
	inner := &ModuleError{Pipeline: "p", Module: "child", Path: "p/1/0", Err: cause}
	outer := &ModuleError{Pipeline: "p", Module: "parent", Path: "p/1", Err: fmt.Errorf("wrapped: %w", inner)}

	me, ok := AsModuleError(fmt.Errorf("run: %w", outer))
	require.True(t, ok)
	assert.Same(t, inner, me)
	assert.ErrorIs(t, outer, cause)

	_, ok = AsModuleError(cause)
	assert.False(t, ok)
}

type container struct {
	ModuleFunc
	chains []Chain
}

func (c container) Children() []Chain { return c.chains }

func TestChildChainsLooksThroughNamed(t *testing.T) {
	inner := Named("child", ModuleFunc(nil))
	m := Named("branch", container{chains: []Chain{{Modules: []Module{inner}}}})
	chains := ChildChains(m)
	require.Len(t, chains, 1)
	assert.Equal(t, "child", ModuleName(chains[0].Modules[0]))
	assert.Nil(t, ChildChains(inner))
}
