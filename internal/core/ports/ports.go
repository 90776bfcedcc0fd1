package ports

import (
	"context"
	"time"

	"archimport/internal/engine/graph"
)

// RunInfo summarises one completed import run.
type RunInfo struct {
	ID        string
	Mode      string
	Roots     []string
	Started   time.Time
	Duration  time.Duration
	Locations int
	Excluded  int
}

// ResultSink receives every successfully frozen import result, e.g. to
// persist it or to export it into another store.
type ResultSink interface {
	Name() string
	Consume(ctx context.Context, run RunInfo, classes *graph.Classes) error
}

// SnapshotStore abstracts persistence of import results.
type SnapshotStore interface {
	ResultSink
	LatestRun(ctx context.Context) (RunInfo, bool, error)
	ClassNames(ctx context.Context, runID string) ([]string, error)
	Close() error
}

// GraphExporter abstracts export of the class graph into a graph database.
type GraphExporter interface {
	ResultSink
	Close(ctx context.Context) error
}
