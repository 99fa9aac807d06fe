package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/internal/testutil"
)

func TestWorker_RunsOnceAndJoins(t *testing.T) {
	var runs int32
	release := make(chan struct{})

	w := StartWorker(RunnableFunc(func() {
		atomic.AddInt32(&runs, 1)
		<-release
	}))

	testutil.WaitForInt32(t, &runs, 1, time.Second)
	testutil.AssertEqual(t, w.Alive(), true)

	joined := make(chan struct{})
	go func() {
		w.Join()
		close(joined)
	}()

	select {
	case <-joined:
		t.Fatal("Join returned while Run was still executing")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("Join did not return after Run finished")
	}

	testutil.AssertEqual(t, w.Alive(), false)
	testutil.AssertEqual(t, atomic.LoadInt32(&runs), int32(1))

	// Join is idempotent.
	w.Join()
	<-w.Done()
}
