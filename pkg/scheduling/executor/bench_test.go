package executor

import (
	"context"
	"sync/atomic"
	"testing"
)

func BenchmarkExecutor_Submit(b *testing.B) {
	e := MustNew(Config{})
	defer e.Close()

	cmd := CommandFunc(func(_ context.Context) error { return nil })

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Submit(cmd)
	}
}

func BenchmarkExecutor_SubmitParallel(b *testing.B) {
	e := MustNew(Config{})
	defer e.Close()

	var executed int64
	cmd := CommandFunc(func(_ context.Context) error {
		atomic.AddInt64(&executed, 1)
		return nil
	})

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = e.Submit(cmd)
		}
	})
}

func BenchmarkExecutor_RoundTrip(b *testing.B) {
	e := MustNew(Config{})
	defer e.Close()

	done := make(chan struct{})
	cmd := CommandFunc(func(_ context.Context) error {
		done <- struct{}{}
		return nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Submit(cmd)
		<-done
	}
}

func BenchmarkQueue_PushPop(b *testing.B) {
	q := newQueue()
	env := envelope{}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = q.push(&env)
		_, _ = q.pop()
	}
}
