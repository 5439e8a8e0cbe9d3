package database

import "context"

// RunRecorder stores analysis runs
type RunRecorder interface {
	// Record inserts a run; an empty ID is assigned by the recorder
	Record(ctx context.Context, run *AnalysisRun) error
}

// RunReader provides read-only access to the run log
type RunReader interface {
	// Recent returns the most recent runs, newest first
	Recent(ctx context.Context, limit int) ([]AnalysisRun, error)
	// Stats aggregates all runs
	Stats(ctx context.Context) (*RunStats, error)
}

// RunStore combines reading and writing
type RunStore interface {
	RunRecorder
	RunReader
}

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}
