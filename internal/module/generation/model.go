package generation

import (
	"encoding/json"
	"time"

	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/provider"
)

// State is the lifecycle state of a generation run.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

var transitions = map[State][]State{
	StateIdle:       {StateValidating, StateCancelled},
	StateValidating: {StateUploading, StateSubmitting, StateFailed, StateCancelled},
	StateUploading:  {StateSubmitting, StateFailed, StateCancelled},
	StateSubmitting: {StatePolling, StateFailed, StateCancelled},
	StatePolling:    {StateSucceeded, StateFailed, StateCancelled},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunError is the recorded failure of a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Status is a point-in-time snapshot of a run.
type Status struct {
	RunID      string          `json:"run_id"`
	Variant    string          `json:"variant"`
	Family     provider.Family `json:"family"`
	State      State           `json:"state"`
	Message    string          `json:"message,omitempty"`
	TaskID     string          `json:"task_id,omitempty"`
	Result     *kieai.Result   `json:"result,omitempty"`
	Error      *RunError       `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Request starts a run of one variant.
type Request struct {
	Variant string
	APIKey  string
	Payload json.RawMessage
	Images  []kieai.Asset
	Videos  []kieai.Asset
}
