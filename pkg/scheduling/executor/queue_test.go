package executor

import (
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/internal/testutil"
	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()

	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, q.push(&envelope{}))
	}
	testutil.AssertEqual(t, q.size(), 3)

	for want := uint64(1); want <= 3; want++ {
		env, ok := q.pop()
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, env.seq, want)
	}
	testutil.AssertEqual(t, q.size(), 0)
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := newQueue()

	got := make(chan uint64)
	go func() {
		env, _ := q.pop()
		got <- env.seq
	}()

	select {
	case <-got:
		t.Fatal("pop returned from an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	testutil.AssertNoError(t, q.push(&envelope{}))

	select {
	case seq := <-got:
		testutil.AssertEqual(t, seq, uint64(1))
	case <-time.After(time.Second):
		t.Fatal("pop was not woken by push")
	}
}

func TestQueue_CloseWakesEmptyPop(t *testing.T) {
	q := newQueue()

	done := make(chan bool)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		testutil.AssertEqual(t, ok, false)
	case <-time.After(time.Second):
		t.Fatal("close did not wake the waiting pop")
	}
}

func TestQueue_CloseKeepsBacklog(t *testing.T) {
	q := newQueue()
	testutil.AssertNoError(t, q.push(&envelope{}))
	testutil.AssertNoError(t, q.push(&envelope{}))

	q.close()
	q.close()
	testutil.AssertEqual(t, q.isClosed(), true)

	err := q.push(&envelope{})
	testutil.AssertErrorIs(t, err, tverrors.ErrClosed)

	_, ok := q.pop()
	testutil.AssertEqual(t, ok, true)
	_, ok = q.pop()
	testutil.AssertEqual(t, ok, true)
	_, ok = q.pop()
	testutil.AssertEqual(t, ok, false)
}

func TestQueue_CloseAndDrain(t *testing.T) {
	q := newQueue()
	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, q.push(&envelope{}))
	}
	_, _ = q.pop()

	rest := q.closeAndDrain()
	testutil.AssertEqual(t, len(rest), 4)
	testutil.AssertEqual(t, rest[0].seq, uint64(2))
	testutil.AssertEqual(t, rest[3].seq, uint64(5))
	testutil.AssertEqual(t, q.size(), 0)
	testutil.AssertErrorIs(t, q.push(&envelope{}), tverrors.ErrClosed)
}

func TestQueue_CompactionPreservesOrder(t *testing.T) {
	q := newQueue()

	var next uint64 = 1
	// Interleave pushes and pops so head crosses the compaction threshold
	// while items remain queued.
	for round := 0; round < 10; round++ {
		for i := 0; i < 100; i++ {
			testutil.AssertNoError(t, q.push(&envelope{}))
		}
		for i := 0; i < 70; i++ {
			env, ok := q.pop()
			testutil.AssertEqual(t, ok, true)
			testutil.AssertEqual(t, env.seq, next)
			next++
		}
	}
	for q.size() > 0 {
		env, _ := q.pop()
		testutil.AssertEqual(t, env.seq, next)
		next++
	}
	testutil.AssertEqual(t, next, uint64(1001))
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := newQueue()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.push(&envelope{})
			}
		}()
	}
	wg.Wait()
	q.close()

	var last uint64
	count := 0
	for {
		env, ok := q.pop()
		if !ok {
			break
		}
		if env.seq != last+1 {
			t.Fatalf("seq %d followed %d", env.seq, last)
		}
		last = env.seq
		count++
	}
	testutil.AssertEqual(t, count, producers*perProducer)
}
