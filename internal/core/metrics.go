package core

import "time"

// Metrics records installation activity.
type Metrics interface {
	ObserveArtifact(category string, kind LinkKind, outcome Outcome, bytes int64, duration time.Duration)
	ObserveStep(step string, duration time.Duration, err error)
	ObserveRun(outcome RunOutcome)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveArtifact(string, LinkKind, Outcome, int64, time.Duration) {}
func (NoopMetrics) ObserveStep(string, time.Duration, error)                       {}
func (NoopMetrics) ObserveRun(RunOutcome)                                          {}
