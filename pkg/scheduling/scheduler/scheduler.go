package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/common/validation"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/executor"
)

const (
	module = "scheduler"

	maxIDLength = 255

	// DefaultTickInterval is how often due entries are checked for.
	DefaultTickInterval = 50 * time.Millisecond

	// DefaultMaxEntries bounds the number of scheduled entries.
	DefaultMaxEntries = 10000
)

var (
	// ErrEntryExists is returned when an id is already scheduled.
	ErrEntryExists = errors.New("entry already scheduled")

	// ErrTooManyEntries is returned when MaxEntries is reached.
	ErrTooManyEntries = errors.New("maximum number of entries reached")

	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")
)

// cronParser accepts five or six fields (seconds optional) and descriptors
// such as @hourly or @every 10s.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Submitter accepts commands for execution. *executor.Executor and
// *executor.MetricsExecutor both satisfy it.
type Submitter interface {
	Submit(cmd executor.Command) error
}

// Entry describes a scheduled command.
type Entry struct {
	ID       string
	NextRun  time.Time
	Interval time.Duration // zero for one-shot and cron entries
	CronExpr string
	Created  time.Time
	Runs     uint64
}

// Scheduler submits commands to an executor at configured times.
type Scheduler interface {
	Schedule(id string, cmd executor.Command, runAt time.Time) error
	ScheduleAfter(id string, cmd executor.Command, delay time.Duration) error
	ScheduleRepeating(id string, cmd executor.Command, interval time.Duration) error
	ScheduleCron(id string, cronExpr string, cmd executor.Command) error

	Cancel(id string) bool
	CancelAll()
	List() []Entry
	Next(id string) (time.Time, bool)

	Start() error
	Stop() error
}

// Config holds scheduler configuration.
type Config struct {
	// Executor receives due commands. When nil the scheduler creates its
	// own executor and shuts it down in Stop.
	Executor Submitter

	Name         string
	Location     *time.Location // for cron expressions, default time.Local
	TickInterval time.Duration
	MaxEntries   int

	Logger  *zerolog.Logger
	Metrics *metrics.Registry // nil disables metrics
}

type entry struct {
	id       string
	cmd      executor.Command
	runAt    time.Time
	interval time.Duration
	cronExpr string
	schedule cron.Schedule
	created  time.Time
	runs     uint64
}

type scheduler struct {
	submitter    Submitter
	ownExecutor  *executor.Executor
	name         string
	location     *time.Location
	tickInterval time.Duration
	maxEntries   int
	log          zerolog.Logger
	metrics      *metrics.Registry

	mu      sync.Mutex
	entries map[string]*entry
	done    chan struct{}
	exited  chan struct{}
	running bool
}

// New creates a scheduler. It does not fire anything until Start is called.
func New(cfg Config) (Scheduler, error) {
	if err := validation.ValidateNonNegativeDuration(module, "TickInterval", cfg.TickInterval); err != nil {
		return nil, err
	}
	if cfg.MaxEntries < 0 {
		return nil, tverrors.NewValidationError(module, "MaxEntries", cfg.MaxEntries, "cannot be negative").
			WithHint("use 0 for the default")
	}

	name := cfg.Name
	if name == "" {
		name = executor.DefaultName
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	log = log.With().Str("scheduler", name).Logger()

	s := &scheduler{
		submitter:    cfg.Executor,
		name:         name,
		location:     cfg.Location,
		tickInterval: cfg.TickInterval,
		maxEntries:   cfg.MaxEntries,
		log:          log,
		metrics:      cfg.Metrics,
		entries:      make(map[string]*entry),
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.tickInterval == 0 {
		s.tickInterval = DefaultTickInterval
	}
	if s.maxEntries == 0 {
		s.maxEntries = DefaultMaxEntries
	}

	if s.submitter == nil {
		exec, err := executor.New(executor.Config{Name: name, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		s.ownExecutor = exec
		s.submitter = exec
	}

	return s, nil
}

// ValidateCron reports whether expr can be used with ScheduleCron.
func ValidateCron(expr string) error {
	if err := validation.ValidateNotEmpty(module, "cronExpr", expr); err != nil {
		return err
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return tverrors.NewValidationError(module, "cronExpr", expr, err.Error()).
			WithHint("use five or six fields, or a descriptor such as @hourly or @every 1m")
	}
	return nil
}

func validateEntry(id string, cmd executor.Command) error {
	if err := validation.ValidateNotEmpty(module, "id", id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength(module, "id", id, maxIDLength); err != nil {
		return err
	}
	if cmd == nil {
		return tverrors.ErrNilCommand
	}
	return nil
}

func (s *scheduler) Schedule(id string, cmd executor.Command, runAt time.Time) error {
	if err := validateEntry(id, cmd); err != nil {
		return err
	}
	if runAt.IsZero() {
		return tverrors.NewValidationError(module, "runAt", runAt, "cannot be zero")
	}
	return s.add(&entry{id: id, cmd: cmd, runAt: runAt})
}

func (s *scheduler) ScheduleAfter(id string, cmd executor.Command, delay time.Duration) error {
	if err := validation.ValidateNonNegativeDuration(module, "delay", delay); err != nil {
		return err
	}
	return s.Schedule(id, cmd, time.Now().Add(delay))
}

// ScheduleRepeating fires cmd on the next tick and then every interval.
func (s *scheduler) ScheduleRepeating(id string, cmd executor.Command, interval time.Duration) error {
	if err := validateEntry(id, cmd); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration(module, "interval", interval); err != nil {
		return err
	}
	return s.add(&entry{id: id, cmd: cmd, runAt: time.Now(), interval: interval})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, cmd executor.Command) error {
	if err := validateEntry(id, cmd); err != nil {
		return err
	}
	if err := ValidateCron(cronExpr); err != nil {
		return err
	}
	schedule, _ := cronParser.Parse(cronExpr)

	return s.add(&entry{
		id:       id,
		cmd:      cmd,
		runAt:    schedule.Next(time.Now().In(s.location)),
		cronExpr: cronExpr,
		schedule: schedule,
	})
}

func (s *scheduler) add(e *entry) error {
	e.created = time.Now()

	s.mu.Lock()
	if _, exists := s.entries[e.id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("schedule %q: %w", e.id, ErrEntryExists)
	}
	if len(s.entries) >= s.maxEntries {
		s.mu.Unlock()
		return fmt.Errorf("schedule %q: %w (%d)", e.id, ErrTooManyEntries, s.maxEntries)
	}
	s.entries[e.id] = e
	active := len(s.entries)
	next := e.runAt
	s.mu.Unlock()

	s.log.Debug().Str("entry", e.id).Time("next_run", next).Msg("entry scheduled")
	if s.metrics != nil {
		s.metrics.EntriesScheduled.WithLabelValues(s.name).Inc()
		s.metrics.EntriesActive.WithLabelValues(s.name).Set(float64(active))
	}
	return nil
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	_, exists := s.entries[id]
	delete(s.entries, id)
	active := len(s.entries)
	s.mu.Unlock()

	if exists {
		s.setActive(active)
	}
	return exists
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	s.setActive(0)
}

// List returns the scheduled entries ordered by next run.
func (s *scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{
			ID:       e.id,
			NextRun:  e.runAt,
			Interval: e.interval,
			CronExpr: e.cronExpr,
			Created:  e.created,
			Runs:     e.runs,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}

// Next returns the next run time of id.
func (s *scheduler) Next(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.runAt, true
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.ownExecutor != nil && s.ownExecutor.State() != executor.StateRunning {
		return fmt.Errorf("start scheduler: %w", tverrors.ErrClosed)
	}

	s.running = true
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	go s.run(s.done, s.exited)

	s.log.Debug().Dur("tick", s.tickInterval).Msg("scheduler started")
	return nil
}

// Stop halts the tick loop and waits for it to exit. Entries stay
// registered. An executor created by New is shut down, draining whatever
// was already submitted.
func (s *scheduler) Stop() error {
	s.mu.Lock()
	var exited chan struct{}
	if s.running {
		s.running = false
		close(s.done)
		exited = s.exited
	}
	s.mu.Unlock()

	if exited != nil {
		<-exited
		s.log.Debug().Msg("scheduler stopped")
	}

	if s.ownExecutor != nil {
		return s.ownExecutor.Shutdown()
	}
	return nil
}

func (s *scheduler) run(done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			s.fireDue(now)
		}
	}
}

// fireDue submits every entry whose run time has passed, earliest first.
func (s *scheduler) fireDue(now time.Time) {
	s.mu.Lock()
	due := make([]*entry, 0)
	for _, e := range s.entries {
		if !e.runAt.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].runAt.Equal(due[j].runAt) {
			return due[i].id < due[j].id
		}
		return due[i].runAt.Before(due[j].runAt)
	})

	for _, e := range due {
		e.runs++
		switch {
		case e.interval > 0:
			e.runAt = now.Add(e.interval)
		case e.schedule != nil:
			e.runAt = e.schedule.Next(now.In(s.location))
		default:
			delete(s.entries, e.id)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.submit(e)
	}
	if len(due) > 0 {
		s.mu.Lock()
		active := len(s.entries)
		s.mu.Unlock()
		s.setActive(active)
	}
}

func (s *scheduler) submit(e *entry) {
	err := s.submitter.Submit(e.cmd)
	if err == nil {
		if s.metrics != nil {
			s.metrics.EntriesFired.WithLabelValues(s.name).Inc()
		}
		return
	}

	if s.metrics != nil {
		s.metrics.SubmitFailures.WithLabelValues(s.name).Inc()
	}

	if !tverrors.IsRejected(err) {
		s.log.Warn().Err(err).Str("entry", e.id).Msg("submission failed")
		return
	}

	// The executor will never accept this entry again.
	s.mu.Lock()
	if s.entries[e.id] == e {
		delete(s.entries, e.id)
	}
	s.mu.Unlock()
	s.log.Warn().Err(err).Str("entry", e.id).Msg("executor rejected entry, dropping it")
}

func (s *scheduler) setActive(n int) {
	if s.metrics != nil {
		s.metrics.EntriesActive.WithLabelValues(s.name).Set(float64(n))
	}
}
