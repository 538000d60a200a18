// Package workflow implements the allocation workflow engine for Ward.
// It provides the state machine, candidate scoring, constraint validation,
// and the bounded optimization loop shared by the bed, staff, and supply
// agents. Domains plug in through the Profile interface; all external
// collaborators are consumed through narrow interfaces.
package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	// ErrCommitConflict indicates a resource changed between assessment
	// and commit. The engine retries once through re-optimization before
	// failing the run.
	ErrCommitConflict = errors.New("resource changed since assessment")

	// ErrRepositoryUnavailable indicates the resource repository could not
	// be reached. Fatal to the issuing run.
	ErrRepositoryUnavailable = errors.New("resource repository unavailable")

	// ErrReviewTimeout indicates the human review collaborator did not
	// respond within the configured window.
	ErrReviewTimeout = errors.New("human review timed out")

	// ErrReviewRejected indicates a reviewer explicitly declined the plan.
	ErrReviewRejected = errors.New("plan rejected by reviewer")

	// ErrAnalysisFailed indicates requirement analysis produced no usable
	// requirement set.
	ErrAnalysisFailed = errors.New("requirement analysis failed")
)
