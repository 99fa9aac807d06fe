/*
Package scheduler submits commands to an executor at fixed times, at fixed
intervals, or on cron expressions.

The scheduler never runs a command itself. When an entry is due it calls
Submit on the configured executor, so commands fired by the scheduler are
ordered and executed exactly like commands submitted directly.

Basic Usage:

	exec := executor.MustNew(executor.Config{Name: "jobs"})

	s, err := scheduler.New(scheduler.Config{Executor: exec})
	if err != nil {
		return err
	}
	_ = s.Start()

	s.ScheduleAfter("warmup", warmup, 5*time.Second)
	s.ScheduleRepeating("heartbeat", heartbeat, 30*time.Second)
	s.ScheduleCron("nightly", "0 0 2 * * *", compact)

	// On shutdown stop the scheduler before the executor.
	_ = s.Stop()
	_ = exec.Shutdown()

Cron Expressions:

Expressions are parsed with github.com/robfig/cron/v3. The seconds field is
optional, so "0 30 * * * *" and "30 * * * *" both fire at half past every
hour. Step values and ranges ("0-30/5") work in any field, as do
descriptors like "@hourly" and "@every 90s". Expressions are evaluated in
Config.Location, which defaults to time.Local.

Timing:

Due entries are checked every Config.TickInterval (50ms by default). Entries
that become due in the same tick are submitted earliest first, ties broken by
id. Repeating entries fire on the first tick after scheduling and then every
interval measured from the tick that fired them.

Rejections:

If the executor rejects a submission because it is shut down or has failed,
the entry is logged and removed. Other submit errors are logged and the entry
is kept.
*/
package scheduler
