/*
Package scheduling groups the command execution and scheduling packages.

  - executor: runs commands one at a time, in submission order, on a single
    background worker
  - scheduler: submits commands to an executor at fixed times, intervals or
    cron expressions

Executor:

	exec := executor.MustNew(executor.Config{Name: "jobs"})
	defer exec.Shutdown()

	exec.SubmitFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

Scheduler:

	sched, _ := scheduler.New(scheduler.Config{Executor: exec})
	sched.Start()
	defer sched.Stop()

	sched.ScheduleAfter("warmup", task, time.Minute)
	sched.ScheduleRepeating("heartbeat", task, 10*time.Second)
	sched.ScheduleCron("report", "0 9 * * MON-FRI", task) // Weekdays at 9 AM

Both packages are safe for concurrent use and pass a context.Context to
every command for cancellation and timeout handling.
*/
package scheduling
