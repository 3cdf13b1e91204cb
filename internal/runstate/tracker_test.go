package runstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Gen    uint64
	Status string
	Items  []string
}

func (s testState) Clone() testState {
	out := s
	out.Items = append([]string(nil), s.Items...)
	return out
}

func begin(tr *Tracker[testState], status string) uint64 {
	return tr.Begin(func(gen uint64) testState {
		return testState{Gen: gen, Status: status}
	})
}

func TestTracker_BeginIncrementsGeneration(t *testing.T) {
	tr := NewTracker(testState{Status: "idle"})

	gen, state := tr.Snapshot()
	assert.Equal(t, uint64(0), gen)
	assert.Equal(t, "idle", state.Status)

	g1 := begin(tr, "searching")
	g2 := begin(tr, "searching")
	assert.Equal(t, uint64(1), g1)
	assert.Equal(t, uint64(2), g2)

	_, state = tr.Snapshot()
	assert.Equal(t, uint64(2), state.Gen)
}

func TestTracker_StalePublishIsDiscarded(t *testing.T) {
	tr := NewTracker(testState{Status: "idle"})

	runA := begin(tr, "searching")
	runB := begin(tr, "searching")

	assert.False(t, tr.Publish(runA, testState{Gen: runA, Status: "complete", Items: []string{"from A"}}))
	assert.True(t, tr.Publish(runB, testState{Gen: runB, Status: "analyzing", Items: []string{"from B"}}))
	assert.False(t, tr.Publish(runA, testState{Gen: runA, Status: "error"}))

	gen, state := tr.Snapshot()
	assert.Equal(t, runB, gen)
	assert.Equal(t, "analyzing", state.Status)
	assert.Equal(t, []string{"from B"}, state.Items)
	assert.False(t, tr.IsCurrent(runA))
	assert.True(t, tr.IsCurrent(runB))
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(testState{})
	gen := begin(tr, "x")
	require.True(t, tr.Publish(gen, testState{Items: []string{"a"}}))

	_, snap := tr.Snapshot()
	snap.Items[0] = "mutated"

	_, again := tr.Snapshot()
	assert.Equal(t, "a", again.Items[0])
}

func TestTracker_ObserversSeeAcceptedUpdatesInOrder(t *testing.T) {
	tr := NewTracker(testState{})

	var got []string
	unsubscribe := tr.Subscribe(func(u Update[testState]) {
		got = append(got, u.State.Status)
	})

	old := begin(tr, "searching")
	current := begin(tr, "searching")
	tr.Publish(old, testState{Status: "stale"})
	tr.Publish(current, testState{Status: "analyzing"})
	tr.Publish(current, testState{Status: "complete"})

	unsubscribe()
	tr.Publish(current, testState{Status: "after-unsubscribe"})

	assert.Equal(t, []string{"searching", "searching", "analyzing", "complete"}, got)
}

func TestTracker_ConcurrentPublish(t *testing.T) {
	tr := NewTracker(testState{})
	gen := begin(tr, "analyzing")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Publish(gen, testState{Status: "analyzing"})
		}()
	}
	wg.Wait()

	g, state := tr.Snapshot()
	assert.Equal(t, gen, g)
	assert.Equal(t, "analyzing", state.Status)
}
