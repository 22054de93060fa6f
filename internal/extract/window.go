package extract

import "strings"

// MatchMode selects how the target gene is compared to the Gene column.
type MatchMode int

const (
	// MatchPrefix accepts genes starting with the target (mcr-1.1 matches mcr-1.10).
	MatchPrefix MatchMode = iota
	// MatchExact accepts only genes equal to the target.
	MatchExact
)

// ParseMatchMode maps the exact flag to a match mode.
func ParseMatchMode(exact bool) MatchMode {
	if exact {
		return MatchExact
	}
	return MatchPrefix
}

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "prefix"
}

// Match reports whether gene matches target under the given mode.
// An empty target never matches.
func Match(mode MatchMode, target, gene string) bool {
	if target == "" {
		return false
	}
	if mode == MatchExact {
		return gene == target
	}
	return strings.HasPrefix(gene, target)
}

// Window is the acceptance range around all target hits of one sequence.
type Window struct {
	SequenceID string
	Start      int64 // Minimum padded start, may be negative
	Stop       int64 // Maximum padded stop
}

func newWindow(sequenceID string, start, stop, padding int64) *Window {
	return &Window{
		SequenceID: sequenceID,
		Start:      start - padding,
		Stop:       stop + padding,
	}
}

// extend grows the window to cover another padded hit.
func (w *Window) extend(start, stop, padding int64) {
	w.Start = min(w.Start, start-padding)
	w.Stop = max(w.Stop, stop+padding)
}

// Contains returns true if [start, stop] lies fully inside the window.
func (w Window) Contains(start, stop int64) bool {
	return start >= w.Start && start <= w.Stop &&
		stop >= w.Start && stop <= w.Stop
}
