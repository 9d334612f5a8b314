package intern

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern_Idempotent(t *testing.T) {
	in := New()

	a := in.Intern("/user/mouse")
	b := in.Intern("/user/mouse")

	assert.Equal(t, a, b)
	assert.Equal(t, 1, in.Len())
}

func TestIntern_DistinctStringsDistinctPaths(t *testing.T) {
	in := New()
	seen := make(map[Path]string)

	for i := 0; i < 100; i++ {
		s := fmt.Sprintf("/user/device%d", i)
		p := in.Intern(s)
		if prev, ok := seen[p]; ok {
			t.Fatalf("path %d assigned to both %q and %q", p, prev, s)
		}
		seen[p] = s
	}
}

func TestIntern_DenseFirstSeenOrder(t *testing.T) {
	in := New()

	assert.Equal(t, Path(1), in.Intern("a"))
	assert.Equal(t, Path(2), in.Intern("b"))
	assert.Equal(t, Path(1), in.Intern("a"))
	assert.Equal(t, Path(3), in.Intern("c"))
}

func TestIntern_EmptyStringIsNotNull(t *testing.T) {
	in := New()

	p := in.Intern("")
	assert.False(t, p.IsNull())
	assert.Equal(t, "", in.Resolve(p))
}

func TestResolve_RoundTrip(t *testing.T) {
	in := New()
	p := in.Intern("/user/mouse/input/delta_x/scalar")

	assert.Equal(t, "/user/mouse/input/delta_x/scalar", in.Resolve(p))
}

func TestResolve_UnknownPathPanics(t *testing.T) {
	in := New()
	in.Intern("/user/mouse")

	for _, p := range []Path{Null, 2, 99} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "expected panic for path %d", p)
				err, ok := r.(*UnknownPathError)
				require.True(t, ok, "panic value should be *UnknownPathError, got %T", r)
				assert.Equal(t, p, err.Path)
			}()
			in.Resolve(p)
		}()
	}
}

func TestLookup_Unknown(t *testing.T) {
	in := New()

	_, ok := in.Lookup(7)
	assert.False(t, ok)
}
