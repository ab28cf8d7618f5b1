package domain

import "time"

// Run status constants
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// Run records one end-to-end tournament and validation execution.
type Run struct {
	RunID       string
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time

	PanelStart       time.Time
	PanelEnd         time.Time
	InSampleEnd      time.Time
	OutOfSampleStart time.Time

	Combinations int // enumerated configurations
	Scored       int
	Skipped      int
	Valid        int

	Error string // populated when Status is FAILED
}
