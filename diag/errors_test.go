package diag

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolFailure struct{ stderr string }

func (f *toolFailure) Error() string { return "tool failed: " + f.stderr }

func TestCompilationErrorReachesToolFailure(t *testing.T) {
	failure := &toolFailure{stderr: "undefined symbol: main"}
	err := errors.Wrap(&CompilationError{Tool: "ld", Err: failure}, "linking hello")

	var found *toolFailure
	require.True(t, errors.As(err, &found))
	assert.Equal(t, "undefined symbol: main", found.stderr)
	assert.Equal(t, failure, errors.Cause(err))
	assert.EqualError(t, err, "linking hello: ld invocation reported errors")
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(Configurationf("unknown target %q", "amiga")))
	assert.True(t, IsConfiguration(errors.Wrap(Configurationf("x"), "validating")))
	assert.False(t, IsConfiguration(&CompilationError{Tool: "ld", Err: errors.New("boom")}))
	assert.False(t, IsConfiguration(nil))
}

func TestModuleLinkErrorNamesInput(t *testing.T) {
	assert.EqualError(t, &ModuleLinkError{Input: "/lib/a.bc"}, "failed to link /lib/a.bc")
	assert.EqualError(t, &ModuleLinkError{Input: "/lib/a.bc", Err: errors.New("bad magic")},
		"failed to link /lib/a.bc: bad magic")
}
