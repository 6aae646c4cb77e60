package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"

	"github.com/i474232898/weather-risk-alerts/internal/metrics"
)

// ErrUnknownTask is returned for task names that were never registered.
var ErrUnknownTask = errors.New("unknown task")

// Task is a named job run on a standard five-field cron schedule.
type Task struct {
	Name string
	Spec string
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs registered tasks on their cron schedules. Each task runs
// independently; a task never overlaps with itself.
type Scheduler struct {
	scheduler *gocron.Scheduler
	loc       *time.Location
	jitter    time.Duration
	metrics   *metrics.Recorder

	mu    sync.Mutex
	tasks map[string]Task
	order []string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler evaluating schedules in loc (time.Local when nil).
// Scheduled runs are delayed by a random duration up to jitter.
func New(loc *time.Location, jitter time.Duration, m *metrics.Recorder) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		loc:       loc,
		jitter:    jitter,
		metrics:   m,
		tasks:     make(map[string]Task),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ValidateSpec reports whether spec is a valid standard cron expression.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Register adds t. Names must be unique and specs valid.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return errors.New("task needs a name and a run function")
	}
	if err := ValidateSpec(t.Spec); err != nil {
		return fmt.Errorf("task %s: %w", t.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.Name]; ok {
		return fmt.Errorf("task %s already registered", t.Name)
	}
	s.tasks[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

// Tasks returns the registered task names in registration order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Start schedules every registered task and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		log.Println("scheduler: no tasks registered; nothing to schedule")
		return nil
	}

	for _, name := range s.order {
		t := s.tasks[name]
		if _, err := s.scheduler.Cron(t.Spec).Tag(t.Name).Do(s.runScheduled, t.Name); err != nil {
			return fmt.Errorf("schedule %s: %w", t.Name, err)
		}
		log.Printf("scheduler: %s scheduled (%s)", t.Name, t.Spec)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any running task.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Trigger runs the named task now and waits for it.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(ctx, t)
}

// Next returns the first scheduled time of the named task after from.
func (s *Scheduler) Next(name string, from time.Time) (time.Time, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	sched, err := cron.ParseStandard(t.Spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from.In(s.loc)), nil
}

func (s *Scheduler) runScheduled(name string) {
	if s.jitter > 0 {
		delay := rand.N(s.jitter)
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	if err := s.Trigger(s.ctx, name); err != nil {
		log.Printf("scheduler: %s failed: %v", name, err)
	}
}

func (s *Scheduler) run(ctx context.Context, t Task) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	log.Printf("scheduler: running %s", t.Name)
	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)
	s.metrics.TaskDuration(t.Name, elapsed)

	if err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	log.Printf("scheduler: completed %s in %s", t.Name, elapsed.Round(time.Millisecond))
	return nil
}
