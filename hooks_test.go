package autotune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBuffer struct {
	value   int
	zeroed  bool
	cloneOf int
}

func (b *fakeBuffer) ZeroInPlace() { b.zeroed = true; b.value = 0 }

func (b *fakeBuffer) Clone() RestorableBuffer { return &fakeBuffer{value: b.value} }

func (b *fakeBuffer) CopyFrom(other RestorableBuffer) {
	o := other.(*fakeBuffer)
	b.value = o.value
}

func TestHookSetDefaultResetToZero(t *testing.T) {
	hs := newHookSet([]string{"buf"}, nil, nil, nil)
	buf := &fakeBuffer{value: 7}
	hs.pre(map[string]any{"buf": buf}, false)
	assert.True(t, buf.zeroed)
	assert.Equal(t, 0, buf.value)
}

func TestHookSetRestoreValueRoundTrip(t *testing.T) {
	hs := newHookSet(nil, []string{"buf"}, nil, nil)
	buf := &fakeBuffer{value: 42}
	nargs := map[string]any{"buf": buf}

	hs.pre(nargs, false)
	buf.value = 999 // simulate the kernel mutating it during the launch
	hs.post(nargs, nil)
	assert.Equal(t, 42, buf.value, "post hook must restore the pre-launch value")
}

func TestHookSetResetOnlySkipsSidecarClone(t *testing.T) {
	hs := newHookSet([]string{"buf"}, []string{"buf"}, nil, nil)
	buf := &fakeBuffer{value: 5}
	hs.pre(map[string]any{"buf": buf}, true)
	assert.Empty(t, hs.sidecar, "reset_only calls must not populate the restore sidecar")
}

func TestHookSetUserDefinedHooksOverrideDefaults(t *testing.T) {
	called := false
	userPre := func(map[string]any, bool) { called = true }
	hs := newHookSet([]string{"buf"}, nil, userPre, nil)
	hs.pre(nil, false)
	assert.True(t, called)
	assert.True(t, hs.userDefinedPre)
}
