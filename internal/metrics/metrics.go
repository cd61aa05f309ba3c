// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Kind identifies the owner-scoped entity a write event refers to.
type Kind int

const (
	KindTag Kind = iota
	KindIngredient
	KindRecipe

	numKinds
)

// Kinds lists every entity kind in exposition order.
var Kinds = []Kind{KindTag, KindIngredient, KindRecipe}

// String returns the label value used in exposition.
func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindIngredient:
		return "ingredient"
	case KindRecipe:
		return "recipe"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalog and recipe writes
	IncCreated(kind Kind)
	IncUpdated(kind Kind)
	IncDeleted(kind Kind)
	IncImageUploaded()

	// Accounts
	IncUserRegistered()
	IncTokenIssued()
	IncLoginFailed()

	// Request pipeline
	IncAuthFailure()
	IncRateLimited()
	ObserveRequestDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
