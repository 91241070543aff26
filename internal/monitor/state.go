package monitor

// Verdict is the classified outcome of one vision analysis pass.
type Verdict string

const (
	VerdictEmpty Verdict = ""
	VerdictYes   Verdict = "YES"
	VerdictNo    Verdict = "NO"
)

// State holds the scalars the monitor loop owns exclusively. There is no
// locking because only the loop goroutine touches it; the HTTP surface reads
// copies published through the status cache.
type State struct {
	// Last (state, display name) pair actually forwarded to the status
	// webhook. Nil means nothing was sent yet / the field was absent.
	LastSentState       *string
	LastSentDisplayName *string

	// SlotIndex cycles over the snapshot slot ring.
	SlotIndex int
	// CycleCount counts completed printing cycles since the last analysis.
	CycleCount int

	PrevVerdict      Verdict
	ConfirmedFailure bool
}

// NeedsNotify reports whether the observed pair differs from the last sent
// pair. Comparison is case-sensitive string/nil equality, no normalization.
func (s *State) NeedsNotify(state string, displayName *string) bool {
	if !strPtrEqual(s.LastSentState, &state) {
		return true
	}
	return !strPtrEqual(s.LastSentDisplayName, displayName)
}

// NeedsStateNotify is the non-printing gate: it compares the printer-level
// state only. A display name going absent is not a trigger by itself.
func (s *State) NeedsStateNotify(state string) bool {
	return !strPtrEqual(s.LastSentState, &state)
}

// MarkSent advances the stored pair to what was just sent. Called after the
// outbound request is issued, success or not: a failed send costs one missed
// notification, never a duplicate flood.
func (s *State) MarkSent(state string, displayName *string) {
	s.LastSentState = &state
	if displayName == nil {
		s.LastSentDisplayName = nil
	} else {
		name := *displayName
		s.LastSentDisplayName = &name
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
