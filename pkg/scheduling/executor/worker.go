package executor

// Runnable is the entry point a Worker runs on its goroutine.
type Runnable interface {
	Run()
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func()

// Run implements Runnable.
func (f RunnableFunc) Run() {
	f()
}

// Worker owns exactly one background goroutine. The goroutine starts when
// the Worker is created, calls Run once, and terminates when Run returns.
type Worker struct {
	done chan struct{}
}

// StartWorker starts a goroutine running r and returns its handle.
func StartWorker(r Runnable) *Worker {
	w := &Worker{done: make(chan struct{})}
	go func() {
		defer close(w.done)
		r.Run()
	}()
	return w
}

// Join blocks until the worker goroutine has terminated. It may be called
// any number of times from any goroutine.
func (w *Worker) Join() {
	<-w.done
}

// Done returns a channel closed when the worker goroutine has terminated.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Alive reports whether the worker goroutine is still running.
func (w *Worker) Alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}
