package session

import (
	"sync"
	"time"
)

type ActionKind string

const (
	ActionBootstrap ActionKind = "bootstrap"
	ActionRefresh   ActionKind = "refresh"
	ActionCreate    ActionKind = "create"
	ActionDecrypt   ActionKind = "decrypt"
)

var actionKinds = []ActionKind{ActionBootstrap, ActionRefresh, ActionCreate, ActionDecrypt}

type ActionState string

const (
	StateIdle     ActionState = "idle"
	StateInFlight ActionState = "in_flight"
	StateSuccess  ActionState = "success"
	StateFailed   ActionState = "failed"
)

// ActionStatus is a point-in-time copy of an Action.
type ActionStatus struct {
	Kind       ActionKind  `json:"kind"`
	State      ActionState `json:"state"`
	Error      string      `json:"error,omitempty"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// Action is one long-running operation: Idle -> InFlight -> Success|Failed.
// A second Begin while InFlight is refused.
type Action struct {
	mu       sync.Mutex
	kind     ActionKind
	state    ActionState
	err      string
	started  time.Time
	finished time.Time
}

func newAction(kind ActionKind) *Action {
	return &Action{kind: kind, state: StateIdle}
}

func (a *Action) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateInFlight {
		return ErrActionInFlight
	}
	a.state = StateInFlight
	a.err = ""
	a.started = time.Now().UTC()
	a.finished = time.Time{}
	return nil
}

// End leaves InFlight and returns how long the action ran.
func (a *Action) End(err error) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = time.Now().UTC()
	if err != nil {
		a.state = StateFailed
		a.err = err.Error()
	} else {
		a.state = StateSuccess
		a.err = ""
	}
	return a.finished.Sub(a.started)
}

func (a *Action) InFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateInFlight
}

func (a *Action) Status() ActionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := ActionStatus{Kind: a.kind, State: a.state, Error: a.err}
	if !a.started.IsZero() {
		t := a.started
		st.StartedAt = &t
	}
	if !a.finished.IsZero() {
		t := a.finished
		st.FinishedAt = &t
	}
	return st
}
