package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncCreated(kind Kind)                          {}
func (n *NoopRecorder) IncUpdated(kind Kind)                          {}
func (n *NoopRecorder) IncDeleted(kind Kind)                          {}
func (n *NoopRecorder) IncImageUploaded()                             {}
func (n *NoopRecorder) IncUserRegistered()                            {}
func (n *NoopRecorder) IncTokenIssued()                               {}
func (n *NoopRecorder) IncLoginFailed()                               {}
func (n *NoopRecorder) IncAuthFailure()                               {}
func (n *NoopRecorder) IncRateLimited()                               {}
func (n *NoopRecorder) ObserveRequestDuration(duration time.Duration) {}
