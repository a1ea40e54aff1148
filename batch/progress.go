// ABOUTME: Progress tracking for a batch run
// ABOUTME: Applies state transitions to results and forwards them to an observer

package batch

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted on every state transition of a file
type Event struct {
	RunID  uuid.UUID
	Total  int
	Result Result
}

// Observer receives events synchronously from the runner goroutine
type Observer func(Event)

// progressTracker owns the results slice for one run
type progressTracker struct {
	observe Observer
	summary Summary
}

func newProgressTracker(runID uuid.UUID, plan []Invocation, observe Observer) *progressTracker {
	results := make([]Result, len(plan))
	for i, inv := range plan {
		results[i] = Result{
			Index:  i,
			Input:  inv.Input,
			Output: inv.Output,
			State:  StatePending,
		}
	}

	return &progressTracker{
		observe: observe,
		summary: Summary{RunID: runID, Results: results},
	}
}

// start moves file i to running
func (pt *progressTracker) start(i int) {
	pt.summary.Results[i].State = StateRunning
	pt.emit(i)
}

// complete moves file i to its terminal state
func (pt *progressTracker) complete(i int, err error, d time.Duration) {
	r := &pt.summary.Results[i]
	r.Duration = d

	if err != nil {
		r.State = StateFailed
		r.Err = err
		pt.summary.Failed++
	} else {
		r.State = StateSucceeded
		pt.summary.Succeeded++
	}

	pt.emit(i)
}

// failAll fails every file from index from onwards with the same error
func (pt *progressTracker) failAll(from int, err error) {
	for i := from; i < len(pt.summary.Results); i++ {
		pt.complete(i, err, 0)
	}
}

func (pt *progressTracker) emit(i int) {
	if pt.observe == nil {
		return
	}

	pt.observe(Event{
		RunID:  pt.summary.RunID,
		Total:  len(pt.summary.Results),
		Result: pt.summary.Results[i],
	})
}

// finish returns a copy of the summary so later mutation cannot leak
func (pt *progressTracker) finish() Summary {
	s := pt.summary
	s.Results = append([]Result(nil), pt.summary.Results...)

	return s
}
