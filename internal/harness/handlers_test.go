package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRef_ZeroValueIsDefault(t *testing.T) {
	var ref HandlerRef[TestSetupHandler]
	assert.True(t, ref.IsDefault())
	assert.False(t, ref.IsIgnore())
	assert.False(t, ref.IsConcrete())

	_, ok := ref.Func()
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	own := Use[TestSetupHandler](func(int) Status { return 1 })
	fallback := Use[TestSetupHandler](func(int) Status { return 2 })

	t.Run("concrete wins", func(t *testing.T) {
		fn, ok := Resolve(own, fallback)
		require.True(t, ok)
		assert.Equal(t, Status(1), fn(0))
	})

	t.Run("default consults table", func(t *testing.T) {
		fn, ok := Resolve(UseDefault[TestSetupHandler](), fallback)
		require.True(t, ok)
		assert.Equal(t, Status(2), fn(0))
	})

	t.Run("default with empty table", func(t *testing.T) {
		_, ok := Resolve(UseDefault[TestSetupHandler](), HandlerRef[TestSetupHandler]{})
		assert.False(t, ok)
	})

	t.Run("ignore calls nothing", func(t *testing.T) {
		_, ok := Resolve(Ignore[TestSetupHandler](), fallback)
		assert.False(t, ok)
	})

	t.Run("default to ignored table entry", func(t *testing.T) {
		_, ok := Resolve(UseDefault[TestSetupHandler](), Ignore[TestSetupHandler]())
		assert.False(t, ok)
	})
}

func TestCase_Constructors(t *testing.T) {
	plain := NewCase("plain", func() {})
	assert.False(t, plain.IsEmpty())
	assert.True(t, plain.Setup.IsDefault())

	empty := NewEmptyCase("empty", WithCaseFailure(Ignore[CaseFailureHandler]()))
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Failure.IsIgnore())

	repeat := NewRepeatCase("repeat", func(int) Control { return CaseNext },
		WithCaseTeardown(Use(VerboseCaseTeardown(nil))))
	assert.NotNil(t, repeat.RepeatCountHandler)
	assert.True(t, repeat.Teardown.IsConcrete())
}

func TestNewSpecification_CopiesCases(t *testing.T) {
	cases := []Case{NewCase("a", func() {}), NewCase("b", func() {})}
	spec := NewSpecification(cases)
	cases[0].Description = "changed"

	assert.Equal(t, 2, spec.Len())
	assert.Equal(t, "a", spec.Cases[0].Description)
	assert.True(t, spec.Defaults.CaseFailure.IsConcrete(), "verbose defaults")
}
