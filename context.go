package reactor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seanchatmangpt/reactor/id"
)

// Context is the per-run execution context. It carries the run and
// trace identity, the append-only results map, and the run status.
// A Context is owned by exactly one workflow execution; it is created
// at run start and discarded when the run's result is returned.
//
// The results map is guarded internally: sibling steps in one batch
// complete concurrently, each writing only its own entry. Reads of
// prior batches' entries need no coordination beyond the lock because
// the batch barrier orders the writes before them.
type Context struct {
	runID   id.RunID
	traceID id.TraceID
	started time.Time

	mu      sync.RWMutex
	state   RunState
	results map[string]*StepResult
	seq     int
}

// NewContext creates a fresh execution context in the running state.
// If traceID is the nil ID, a new trace identity is generated.
func NewContext(traceID id.TraceID) *Context {
	if traceID.IsNil() {
		traceID = id.NewTraceID()
	}
	return &Context{
		runID:   id.NewRunID(),
		traceID: traceID,
		started: time.Now().UTC(),
		state:   RunStateRunning,
		results: make(map[string]*StepResult),
	}
}

// RunID returns the run identity.
func (c *Context) RunID() id.RunID { return c.runID }

// TraceID returns the trace identity propagated through every step
// of this run.
func (c *Context) TraceID() id.TraceID { return c.traceID }

// StartedAt returns the run start timestamp.
func (c *Context) StartedAt() time.Time { return c.started }

// State returns the current run state.
func (c *Context) State() RunState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetState transitions the run state. Called by the engine only.
func (c *Context) SetState(s RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Record stores a step's result. The map is append-only: recording the
// same step twice is a programming error in the scheduler, except for
// a compensation-driven re-attempt which must call Replace instead.
func (c *Context) Record(res *StepResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[res.Step]; ok {
		return fmt.Errorf("%w: %s", ErrResultRecorded, res.Step)
	}
	c.seq++
	res.Sequence = c.seq
	c.results[res.Step] = res
	return nil
}

// Replace overwrites the result of a step that is being re-attempted
// after a compensation returned a retry outcome. The new result takes
// a fresh sequence number so unwind order stays consistent.
func (c *Context) Replace(res *StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	res.Sequence = c.seq
	c.results[res.Step] = res
}

// Result returns a step's recorded result, if any.
func (c *Context) Result(name string) (*StepResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[name]
	return res, ok
}

// Results returns a snapshot copy of the results map. The StepResult
// values are shared (they are immutable once recorded).
func (c *Context) Results() map[string]*StepResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*StepResult, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Completed returns the successfully completed results in completion
// order (ascending sequence). This is the compensation working set.
func (c *Context) Completed() []*StepResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*StepResult, 0, len(c.results))
	for _, v := range c.results {
		if v.Success {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
