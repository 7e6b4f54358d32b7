package review

import "github.com/coursekit/review/types"

// Re-export types from the types package.
//
// This file provides a stable public API for the library's core types and
// interfaces via type aliases. Internal packages depend on the types
// subpackage directly, which avoids import cycles while still giving users
// review.ReviewStep, review.Logger, etc.
type (
	StepState     = types.StepState
	AssignerKind  = types.AssignerKind
	ReviewStep    = types.ReviewStep
	ReviewSummary = types.ReviewSummary
)

// Re-export interfaces from the types package for convenience.
type (
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
	Selector         = types.Selector
)

// Re-export StepState constants.
const (
	StateAssigned  = types.StateAssigned
	StateCompleted = types.StateCompleted
	StateExpired   = types.StateExpired
)

// Re-export AssignerKind constants.
const (
	AssignerHuman = types.AssignerHuman
	AssignerAuto  = types.AssignerAuto
)
