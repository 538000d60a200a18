package workflow

import (
	"time"

	"github.com/google/uuid"
)

// State names one node of the allocation state machine.
type State string

// Workflow states. AnalyzeRequirements is the entry point; Completed and
// Failed are terminal.
const (
	StateAnalyzeRequirements State = "analyze_requirements"
	StateAssessAvailability  State = "assess_availability"
	StateEmergencyFastPath   State = "emergency_fast_path"
	StateAnalyzeCapacity     State = "analyze_capacity"
	StateGeneratePlan        State = "generate_plan"
	StateQualityGate         State = "quality_gate"
	StateValidate            State = "validate"
	StateOptimize            State = "optimize"
	StateHumanReview         State = "human_review"
	StateImplementation      State = "implementation"
	StateNotify              State = "notify"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// RunStatus summarizes a run for external observers.
type RunStatus string

// Run statuses.
const (
	RunActive         RunStatus = "active"
	RunAwaitingReview RunStatus = "awaiting_review"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
)

// LogEntry is one line of the run's accumulated execution log.
type LogEntry struct {
	State   State     `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Run is the full execution record of one workflow instance. It is owned
// exclusively by its engine for the lifetime of the run and handed to the
// audit collaborator at the terminal state. FailureReason is set on every
// failed run; Plan always holds the last valid plan snapshot for diagnosis.
type Run struct {
	ID            uuid.UUID  `json:"id"`
	RequestID     uuid.UUID  `json:"request_id"`
	Domain        Domain     `json:"domain"`
	State         State      `json:"state"`
	Status        RunStatus  `json:"status"`
	Iterations    int        `json:"iterations"`
	Plan          *Plan      `json:"plan,omitempty"`
	Log           []LogEntry `json:"log,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at,omitzero"`
}

func (r *Run) logf(now time.Time, state State, msg string) {
	r.Log = append(r.Log, LogEntry{State: state, Message: msg, At: now})
}
