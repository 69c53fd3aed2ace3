package task

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRepeatingTaskRuns(t *testing.T) {
	var runs int32
	task := NewRepeating("test", func() { atomic.AddInt32(&runs, 1) }, 5*time.Millisecond)
	task.Start()
	task.Start()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runs) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop(false)

	if atomic.LoadInt32(&runs) < 2 {
		t.Fatalf("expected at least 2 runs, got %d", runs)
	}
}

func TestStopForceExec(t *testing.T) {
	var runs int32
	task := NewRepeating("test", func() { atomic.AddInt32(&runs, 1) }, time.Hour)
	task.Start()
	task.Stop(true)
	task.Stop(true)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected exactly one forced run, got %d", got)
	}
}

func TestPanickingJobKeepsRunning(t *testing.T) {
	var runs int32
	task := NewRepeating("test", func() {
		atomic.AddInt32(&runs, 1)
		panic("boom")
	}, 5*time.Millisecond)
	task.Start()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runs) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop(false)

	if atomic.LoadInt32(&runs) < 2 {
		t.Fatal("expected the task to survive a panicking job")
	}
}
