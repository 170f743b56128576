package autotune

// PreHook runs before a kernel launch, given the full bound-argument
// mapping. reset_only is true only for the one extra call Exhaustive makes
// after caching its decision, to restore input state before the user-visible
// launch.
type PreHook func(fullNargs map[string]any, resetOnly bool)

// PostHook runs after a kernel launch, given the full bound-argument
// mapping and the error the launch raised (nil on success).
type PostHook func(fullNargs map[string]any, launchErr error)

// hookSet holds the resolved pre/post hooks for one tunable plus the
// restore-value sidecar they close over. The sidecar is captured as a
// closure-local map in the original Python; here it is lifted into explicit
// state owned by the tunable, since idiomatic Go prefers explicit fields
// over closures mutating shared upvalues.
type hookSet struct {
	pre  PreHook
	post PostHook

	resetToZero  []string
	restoreValue []string
	sidecar      map[string]RestorableBuffer

	userDefinedPre  bool
	userDefinedPost bool
}

func newHookSet(resetToZero, restoreValue []string, userPre PreHook, userPost PostHook) *hookSet {
	hs := &hookSet{
		resetToZero:  append([]string(nil), resetToZero...),
		restoreValue: append([]string(nil), restoreValue...),
		sidecar:      make(map[string]RestorableBuffer),
	}

	if userPre != nil {
		hs.pre = userPre
		hs.userDefinedPre = true
	} else if len(resetToZero) > 0 || len(restoreValue) > 0 {
		hs.pre = hs.defaultPre
	} else {
		hs.pre = func(map[string]any, bool) {}
	}

	if userPost != nil {
		hs.post = userPost
		hs.userDefinedPost = true
	} else if len(restoreValue) > 0 {
		hs.post = hs.defaultPost
	} else {
		hs.post = func(map[string]any, error) {}
	}

	return hs
}

// defaultPre zeroes every reset_to_zero buffer, then — unless this call is a
// reset-only restore — clones every restore_value buffer into the sidecar.
func (hs *hookSet) defaultPre(fullNargs map[string]any, resetOnly bool) {
	for _, name := range hs.resetToZero {
		if buf, ok := fullNargs[name].(ZeroableBuffer); ok {
			buf.ZeroInPlace()
		}
	}
	if resetOnly {
		return
	}
	for _, name := range hs.restoreValue {
		if buf, ok := fullNargs[name].(RestorableBuffer); ok {
			hs.sidecar[name] = buf.Clone()
		}
	}
}

// defaultPost copies each sidecar entry back into its restore_value buffer
// and clears the sidecar, regardless of whether the launch failed.
func (hs *hookSet) defaultPost(fullNargs map[string]any, _ error) {
	for _, name := range hs.restoreValue {
		if sidecar, ok := hs.sidecar[name]; ok {
			if buf, ok := fullNargs[name].(RestorableBuffer); ok {
				buf.CopyFrom(sidecar)
			}
		}
	}
	hs.sidecar = make(map[string]RestorableBuffer)
}
