package git

import (
	"regexp"
	"strconv"
	"strings"
)

// Phase is a stage of a transfer. Phases only move forward.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReceiving
	PhaseResolving
	PhaseSending
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseReceiving:
		return "receiving-objects"
	case PhaseResolving:
		return "resolving-deltas"
	case PhaseSending:
		return "sending-objects"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// rank orders phases. Receiving and sending belong to different transfer
// directions and share a rank.
func (p Phase) rank() int {
	switch p {
	case PhaseReceiving, PhaseSending:
		return 1
	case PhaseResolving:
		return 2
	case PhaseDone:
		return 3
	default:
		return 0
	}
}

// Progress is one transfer statistics update.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	// Throughput is git's free-form size and rate text, e.g.
	// "1.20 MiB | 2.40 MiB/s". Empty when git did not report one.
	Throughput string
}

// Percent returns the completed fraction in the range [0, 100].
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

// e.g. "Receiving objects:  45% (9/20), 1.20 MiB | 2.40 MiB/s"
var progressLine = regexp.MustCompile(`^([A-Za-z ]+):\s+\d+% \((\d+)/(\d+)\)(?:, (.*))?$`)

var phaseByTitle = map[string]Phase{
	"Receiving objects": PhaseReceiving,
	"Unpacking objects": PhaseReceiving,
	"Resolving deltas":  PhaseResolving,
	"Writing objects":   PhaseSending,
}

// ParseProgress parses one line of git's transfer progress output. Lines
// for stages that carry no phase (counting, compressing) are rejected, as
// are receiving lines before any object arrived.
func ParseProgress(line string) (Progress, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "remote: "))
	line = strings.TrimSuffix(line, ", done.")
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	phase, ok := phaseByTitle[m[1]]
	if !ok {
		return Progress{}, false
	}

	current, err := strconv.Atoi(m[2])
	if err != nil {
		return Progress{}, false
	}
	total, err := strconv.Atoi(m[3])
	if err != nil {
		return Progress{}, false
	}
	// Receiving begins with the first object, not with git's 0/N banner.
	if phase == PhaseReceiving && current == 0 {
		return Progress{}, false
	}
	return Progress{Phase: phase, Current: current, Total: total, Throughput: m[4]}, true
}

// Tracker feeds progress updates to a callback, dropping any update that
// would move the phase backwards or rewind the count within a phase.
type Tracker struct {
	last Progress
	fn   func(Progress)
}

// NewTracker creates a tracker reporting to fn. fn may be nil.
func NewTracker(fn func(Progress)) *Tracker {
	return &Tracker{fn: fn}
}

// Observe parses a raw progress line and forwards it.
func (t *Tracker) Observe(line string) {
	if p, ok := ParseProgress(line); ok {
		t.Update(p)
	}
}

// Update forwards p unless it regresses.
func (t *Tracker) Update(p Progress) {
	switch {
	case p.Phase.rank() < t.last.Phase.rank():
		return
	case p.Phase == t.last.Phase && p.Current < t.last.Current:
		return
	case p.Phase.rank() == t.last.Phase.rank() && p.Phase != t.last.Phase && t.last.Phase != PhaseIdle:
		// Receiving and sending never mix within one transfer.
		return
	}

	t.last = p
	if t.fn != nil {
		t.fn(p)
	}
}

// Finish moves the tracker to PhaseDone. Repeated calls are no-ops.
func (t *Tracker) Finish() {
	if t.last.Phase == PhaseDone {
		return
	}
	done := Progress{Phase: PhaseDone, Current: t.last.Total, Total: t.last.Total}
	t.Update(done)
}

// Phase returns the last phase reported.
func (t *Tracker) Phase() Phase {
	return t.last.Phase
}
