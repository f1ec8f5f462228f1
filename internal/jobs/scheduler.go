package jobs

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Func is one unit of background work. It must respect ctx and return
// promptly once ctx is cancelled.
type Func func(ctx context.Context) error

// Job pairs a name with a fixed run interval. The first run happens one
// interval after Start, not immediately.
type Job struct {
	Name     string
	Interval time.Duration
	Run      Func
}

// JobInfo is the introspection view exposed over the health endpoint.
type JobInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	NextRun  time.Time     `json:"next_run"`
	LastRun  time.Time     `json:"last_run,omitempty"`
}

// Scheduler drives registered jobs on fixed intervals, one goroutine
// per job. Start is idempotent; Stop signals shutdown without waiting
// for in-flight runs.
type Scheduler struct {
	log   *slog.Logger
	clock func() time.Time

	mu      sync.Mutex
	jobs    []*jobState
	started bool
	cancel  context.CancelFunc
}

type jobState struct {
	job     Job
	nextRun time.Time
	lastRun time.Time
}

func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{log: log, clock: time.Now}
}

// Register adds a job. Must be called before Start; registrations after
// Start are ignored with a warning.
func (s *Scheduler) Register(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Warn("job registered after start, ignored", "job", j.Name)
		return
	}
	if j.Name == "" || j.Interval <= 0 || j.Run == nil {
		s.log.Warn("invalid job registration ignored", "job", j.Name)
		return
	}
	s.jobs = append(s.jobs, &jobState{job: j})
}

// Start launches all registered jobs. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Warn("scheduler already running")
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	now := s.clock()
	for _, st := range s.jobs {
		st.nextRun = now.Add(st.job.Interval)
		go s.loop(ctx, st)
	}
	s.log.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop signals every job loop to exit. It does not wait for in-flight
// runs; jobs observe ctx cancellation and finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.cancel()
	s.log.Info("scheduler stopped")
}

// Running reports whether Start has been called and Stop has not.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Jobs returns a snapshot of every registered job and its timing.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, st := range s.jobs {
		out = append(out, JobInfo{
			Name:     st.job.Name,
			Interval: st.job.Interval,
			NextRun:  st.nextRun,
			LastRun:  st.lastRun,
		})
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, st *jobState) {
	ticker := time.NewTicker(st.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOne(ctx, st)
		}
	}
}

// runOne executes a single job run. A panic in one run is recovered and
// logged so the loop keeps its schedule.
func (s *Scheduler) runOne(ctx context.Context, st *jobState) {
	now := s.clock()
	s.mu.Lock()
	st.lastRun = now
	st.nextRun = now.Add(st.job.Interval)
	s.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("job panicked",
				"job", st.job.Name, "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	start := s.clock()
	if err := st.job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("job run failed", "job", st.job.Name, "error", err)
		return
	}
	s.log.Debug("job run finished", "job", st.job.Name, "took", s.clock().Sub(start))
}
