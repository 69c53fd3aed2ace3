package task

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RepeatingTask executes a job in a specific interval asynchronously
type RepeatingTask struct {
	name     string
	job      func()
	interval time.Duration

	mtx     sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewRepeating creates a new repeating asynchronous task.
// The name is only used for logging.
func NewRepeating(name string, job func(), interval time.Duration) *RepeatingTask {
	return &RepeatingTask{
		name:     name,
		job:      job,
		interval: interval,
	}
}

// Start starts the repeating task.
// If the task is already running, this is a no-op.
func (task *RepeatingTask) Start() {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	if task.running {
		return
	}
	task.running = true
	task.stop = make(chan struct{})
	task.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(task.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				task.run()
			case <-stop:
				return
			}
		}
	}(task.stop, task.done)
}

// Stop stops the repeating task and waits for a currently executing run to finish.
// If the task is not running, this is a no-op.
// forceExec defines whether to execute the job one last time just before the task shuts down.
func (task *RepeatingTask) Stop(forceExec bool) {
	task.mtx.Lock()
	if !task.running {
		task.mtx.Unlock()
		return
	}
	close(task.stop)
	done := task.done
	task.running = false
	task.mtx.Unlock()

	<-done
	if forceExec {
		task.run()
	}
}

func (task *RepeatingTask) run() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("task", task.name).Interface("panic", rec).Msg("repeating task panicked")
		}
	}()
	task.job()
}
