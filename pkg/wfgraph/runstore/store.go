// Package runstore persists sealed workflow run results.
//
// The engine never writes to a store mid-run. When a run is configured
// with wfgraph.WithRunStore, its finished RunResult is encoded as JSON and
// saved once, after the trace is sealed; a store failure is logged and does
// not change the run's outcome.
package runstore

import (
	"context"
	"errors"
	"time"
)

// Store persists run records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a record, replacing any record with the same RunID.
	Save(ctx context.Context, rec Record) error

	// Load retrieves the record for runID.
	// Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, runID string) (Record, error)

	// List returns metadata for stored runs matching f, newest first.
	// Returns an empty slice (not error) when nothing matches.
	List(ctx context.Context, f Filter) ([]Info, error)

	// Delete removes a record. Returns nil if it doesn't exist.
	Delete(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one stored run.
type Record struct {
	RunID         string
	GraphID       string
	Status        string
	FailingNodeID string
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time

	// Data is the JSON encoding of the run result, trace included.
	Data []byte
}

// Info provides metadata without loading the full record.
type Info struct {
	RunID         string
	GraphID       string
	Status        string
	FailingNodeID string
	StartedAt     time.Time
	FinishedAt    time.Time
	Size          int64
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	GraphID string
	Status  string

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

func (f Filter) matches(rec Record) bool {
	return (f.GraphID == "" || f.GraphID == rec.GraphID) &&
		(f.Status == "" || f.Status == rec.Status)
}

func (r Record) info() Info {
	return Info{
		RunID:         r.RunID,
		GraphID:       r.GraphID,
		Status:        r.Status,
		FailingNodeID: r.FailingNodeID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Size:          int64(len(r.Data)),
	}
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a run record doesn't exist.
	ErrNotFound = errors.New("run record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("run store closed")

	// ErrMissingRunID indicates a record without a RunID.
	ErrMissingRunID = errors.New("run record has no run id")
)
