package reactor

import (
	"errors"
	"sync"
	"testing"

	"github.com/seanchatmangpt/reactor/id"
)

func TestNewContext_GeneratesIdentity(t *testing.T) {
	rc := NewContext(id.TraceID{})
	if rc.RunID().IsNil() {
		t.Error("run ID should be generated")
	}
	if rc.TraceID().IsNil() {
		t.Error("trace ID should be generated when none is supplied")
	}
	if rc.State() != RunStateRunning {
		t.Errorf("state = %s, want running", rc.State())
	}
	if rc.StartedAt().IsZero() {
		t.Error("start timestamp should be set")
	}
}

func TestNewContext_PropagatesSuppliedTrace(t *testing.T) {
	traceID := id.NewTraceID()
	rc := NewContext(traceID)
	if rc.TraceID() != traceID {
		t.Errorf("trace = %s, want %s", rc.TraceID(), traceID)
	}
}

func TestContext_RecordIsAppendOnly(t *testing.T) {
	rc := NewContext(id.TraceID{})

	if err := rc.Record(&StepResult{Step: "a", Success: true, Data: 1}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	err := rc.Record(&StepResult{Step: "a", Success: true, Data: 2})
	if !errors.Is(err, ErrResultRecorded) {
		t.Fatalf("second Record err = %v, want ErrResultRecorded", err)
	}

	res, ok := rc.Result("a")
	if !ok || res.Data != 1 {
		t.Errorf("result = %+v, want the original entry", res)
	}
}

func TestContext_ReplaceTakesFreshSequence(t *testing.T) {
	rc := NewContext(id.TraceID{})
	_ = rc.Record(&StepResult{Step: "a", Success: true})
	_ = rc.Record(&StepResult{Step: "b", Success: false, Err: errors.New("boom")})

	rc.Replace(&StepResult{Step: "b", Success: true})

	res, _ := rc.Result("b")
	if !res.Success {
		t.Fatal("replaced result should be the success")
	}
	a, _ := rc.Result("a")
	if res.Sequence <= a.Sequence {
		t.Errorf("replaced sequence %d should follow %d", res.Sequence, a.Sequence)
	}
}

func TestContext_CompletedOrdersBySequence(t *testing.T) {
	rc := NewContext(id.TraceID{})
	_ = rc.Record(&StepResult{Step: "first", Success: true})
	_ = rc.Record(&StepResult{Step: "failed", Success: false, Err: errors.New("boom")})
	_ = rc.Record(&StepResult{Step: "second", Success: true})

	completed := rc.Completed()
	if len(completed) != 2 {
		t.Fatalf("completed = %d entries, want 2", len(completed))
	}
	if completed[0].Step != "first" || completed[1].Step != "second" {
		t.Errorf("order = [%s %s], want [first second]", completed[0].Step, completed[1].Step)
	}
}

func TestContext_ConcurrentSiblingRecords(t *testing.T) {
	rc := NewContext(id.TraceID{})
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rc.Record(&StepResult{Step: name, Success: true})
		}()
	}
	wg.Wait()

	if got := len(rc.Results()); got != len(names) {
		t.Fatalf("recorded %d results, want %d", got, len(names))
	}

	// Sequence numbers are unique and dense.
	seen := make(map[int]bool)
	for _, res := range rc.Completed() {
		if seen[res.Sequence] {
			t.Errorf("duplicate sequence %d", res.Sequence)
		}
		seen[res.Sequence] = true
	}
	for i := 1; i <= len(names); i++ {
		if !seen[i] {
			t.Errorf("missing sequence %d", i)
		}
	}
}

func TestRunState_Terminal(t *testing.T) {
	cases := []struct {
		state RunState
		want  bool
	}{
		{RunStateRunning, false},
		{RunStateCompleted, true},
		{RunStateFailed, true},
		{RunStateTimedOut, true},
	}
	for _, tc := range cases {
		if got := tc.state.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.state, got, tc.want)
		}
	}
}
