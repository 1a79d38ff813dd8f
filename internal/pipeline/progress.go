package pipeline

import (
	"fmt"
	"sync"
)

// State identifies the driver's position in the pipeline.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateExtracting
	StateDeduplicating
	StateTranslating
	StateRewriting
	StateFinalizing
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateAuthenticating: "authenticating",
	StateExtracting:     "extracting",
	StateDeduplicating:  "deduplicating",
	StateTranslating:    "translating",
	StateRewriting:      "rewriting",
	StateFinalizing:     "finalizing",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Snapshot is a point-in-time copy of the progress state, safe to hand to
// pollers. Stale snapshots are expected; the percentage is monotonic across
// the whole run.
type Snapshot struct {
	State      State    `json:"-"`
	StateName  string   `json:"state"`
	Percent    int      `json:"percent"`
	Log        []string `json:"log"`
	ResultLink string   `json:"result_link,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Progress tracks a monotonically non-decreasing percentage plus an
// append-only log. The pipeline driver is the only writer; any number of
// pollers may read snapshots.
type Progress struct {
	mu         sync.RWMutex
	state      State
	percent    int
	log        []string
	resultLink string
	errMsg     string
}

// NewProgress returns progress in the Idle state at 0 percent.
func NewProgress() *Progress {
	return &Progress{state: StateIdle}
}

// SetState records a state transition. Re-entering a terminal state is a
// no-op so that Done stays idempotent.
func (p *Progress) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.state = s
	if s == StateDone && p.percent < 100 {
		p.percent = 100
	}
}

// SetPercent raises the completion percentage. Values below the current one
// or outside 0..100 are clamped, keeping the reported progress monotonic.
func (p *Progress) SetPercent(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pct > 100 {
		pct = 100
	}
	if pct > p.percent {
		p.percent = pct
	}
}

// Logf appends a formatted human-readable line to the progress log.
func (p *Progress) Logf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, fmt.Sprintf(format, args...))
}

// SetResultLink records the link to the translated presentation.
func (p *Progress) SetResultLink(link string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultLink = link
}

// Fail moves the progress to the Failed state with a human-readable message.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.state = StateFailed
	p.errMsg = err.Error()
	p.log = append(p.log, "error: "+err.Error())
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	logCopy := make([]string, len(p.log))
	copy(logCopy, p.log)
	return Snapshot{
		State:      p.state,
		StateName:  p.state.String(),
		Percent:    p.percent,
		Log:        logCopy,
		ResultLink: p.resultLink,
		Error:      p.errMsg,
	}
}
