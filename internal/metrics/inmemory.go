package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
// Per-kind counters are indexed by Kind.
type Snapshot struct {
	Created                [numKinds]uint64
	Updated                [numKinds]uint64
	Deleted                [numKinds]uint64
	ImagesUploaded         uint64
	UsersRegistered        uint64
	TokensIssued           uint64
	LoginsFailed           uint64
	AuthFailures           uint64
	RateLimited            uint64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly in tests.
type InMemoryRecorder struct {
	created                [numKinds]uint64
	updated                [numKinds]uint64
	deleted                [numKinds]uint64
	imagesUploaded         uint64
	usersRegistered        uint64
	tokensIssued           uint64
	loginsFailed           uint64
	authFailures           uint64
	rateLimited            uint64
	requestDurationCount   uint64
	requestDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	var snap Snapshot
	for _, k := range Kinds {
		snap.Created[k] = atomic.LoadUint64(&m.created[k])
		snap.Updated[k] = atomic.LoadUint64(&m.updated[k])
		snap.Deleted[k] = atomic.LoadUint64(&m.deleted[k])
	}
	snap.ImagesUploaded = atomic.LoadUint64(&m.imagesUploaded)
	snap.UsersRegistered = atomic.LoadUint64(&m.usersRegistered)
	snap.TokensIssued = atomic.LoadUint64(&m.tokensIssued)
	snap.LoginsFailed = atomic.LoadUint64(&m.loginsFailed)
	snap.AuthFailures = atomic.LoadUint64(&m.authFailures)
	snap.RateLimited = atomic.LoadUint64(&m.rateLimited)
	snap.RequestDurationCount = atomic.LoadUint64(&m.requestDurationCount)
	snap.RequestDurationTotalNs = atomic.LoadInt64(&m.requestDurationTotalNs)
	return snap
}

// IncCreated increments the created counter for kind.
func (m *InMemoryRecorder) IncCreated(kind Kind) {
	if kind.valid() {
		atomic.AddUint64(&m.created[kind], 1)
	}
}

// IncUpdated increments the updated counter for kind.
func (m *InMemoryRecorder) IncUpdated(kind Kind) {
	if kind.valid() {
		atomic.AddUint64(&m.updated[kind], 1)
	}
}

// IncDeleted increments the deleted counter for kind.
func (m *InMemoryRecorder) IncDeleted(kind Kind) {
	if kind.valid() {
		atomic.AddUint64(&m.deleted[kind], 1)
	}
}

func (m *InMemoryRecorder) IncImageUploaded() {
	atomic.AddUint64(&m.imagesUploaded, 1)
}

func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

func (m *InMemoryRecorder) IncTokenIssued() {
	atomic.AddUint64(&m.tokensIssued, 1)
}

func (m *InMemoryRecorder) IncLoginFailed() {
	atomic.AddUint64(&m.loginsFailed, 1)
}

func (m *InMemoryRecorder) IncAuthFailure() {
	atomic.AddUint64(&m.authFailures, 1)
}

func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// ObserveRequestDuration records the duration of one HTTP request.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	atomic.AddUint64(&m.requestDurationCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}
