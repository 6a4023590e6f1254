package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/corelinkhq/kernelmgr/internal/infrastructure/logging"
)

// Task is the refresh function a scheduler drives.
type Task func(ctx context.Context) error

// StandbyPolicy decides, before each wait, whether the long interval applies.
type StandbyPolicy func() bool

// Never keeps the scheduler on its active interval permanently.
func Never() bool { return false }

// WhenIdle returns a policy that selects standby when the supplied activity
// source reports no recent interest.
func WhenIdle(idle func() bool) StandbyPolicy {
	return idle
}

// Config parameterizes one scheduler.
type Config struct {
	// Name tags log lines and metrics.
	Name string
	// Active is the short interval used while the environment is active.
	Active time.Duration
	// Standby is the long interval used while the standby policy holds.
	Standby time.Duration
	// Policy selects between the two intervals; nil means Never.
	Policy StandbyPolicy
	// Task is the refresh function. Required.
	Task Task
	// Logger for swallowed tick failures; nil means no-op.
	Logger *logging.Logger
	// OnTick observes each tick execution result; used for metrics. Optional.
	OnTick func(skipped bool, err error)
	// OnStandby observes interval selection; used for metrics. Optional.
	OnStandby func(standby bool)
}

// Scheduler runs a task on an interval with active/standby switching.
// At most one task execution is in flight at any time; ticks that fire while
// an execution is pending are skipped, never queued.
type Scheduler struct {
	cfg Config
	log *logging.Logger

	// taskMu serializes task executions across ticks and RefreshNow.
	taskMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	kick    chan struct{}
	done    chan struct{}
}

// New creates a stopped scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Policy == nil {
		cfg.Policy = Never
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{
		cfg: cfg,
		log: log.Named("poll." + cfg.Name),
	}
}

// Start begins polling with an immediate first execution, then ticks on the
// configured interval. Idempotent: calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.kick = make(chan struct{}, 1)
	s.done = make(chan struct{})

	go s.loop(ctx, s.kick, s.done)
}

// Stop halts polling. Idempotent. An in-flight task execution is allowed to
// finish; its result is discarded by the owner, not by the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RefreshNow executes the task immediately in the caller's goroutine and
// returns its outcome. The interval timer is reset so the next tick fires a
// full interval after this refresh. Serialized against tick executions: a
// concurrent tick execution finishes first.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	s.taskMu.Lock()
	err := s.cfg.Task(ctx)
	s.taskMu.Unlock()

	// Reset the wait so polling does not double up right after a manual
	// refresh. Non-blocking: a pending kick already achieves the reset.
	s.mu.Lock()
	if s.running {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	return err
}

// interval picks the wait for the next tick from the standby policy.
func (s *Scheduler) interval() time.Duration {
	standby := s.cfg.Policy()
	if s.cfg.OnStandby != nil {
		s.cfg.OnStandby(standby)
	}
	if standby && s.cfg.Standby > 0 {
		return s.cfg.Standby
	}
	return s.cfg.Active
}

func (s *Scheduler) loop(ctx context.Context, kick <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// First execution fires immediately: a fresh owner gets its initial
	// data after one round trip instead of waiting out a full interval.
	s.tick(ctx)

	timer := time.NewTimer(s.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-kick:
			// Manual refresh ran; restart the wait from scratch.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval())

		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval())
		}
	}
}

// tick runs one scheduled execution, skipping when a refresh is in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.taskMu.TryLock() {
		if s.cfg.OnTick != nil {
			s.cfg.OnTick(true, nil)
		}
		s.log.Debug("tick skipped, refresh in flight")
		return
	}
	defer s.taskMu.Unlock()

	err := s.cfg.Task(ctx)
	if s.cfg.OnTick != nil {
		s.cfg.OnTick(false, err)
	}
	if err != nil {
		// Tick failures are swallowed: the cache stays stale until the next
		// tick. Callers that need the error use RefreshNow.
		s.log.Warn("poll tick failed", zap.Error(err))
	}
}
