package kernels

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/corelinkhq/kernelmgr/internal/infrastructure/config"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/logging"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/monitoring"
	"github.com/corelinkhq/kernelmgr/internal/poll"
	"github.com/corelinkhq/kernelmgr/internal/shared/events"
	"github.com/corelinkhq/kernelmgr/internal/shared/future"
	"github.com/corelinkhq/kernelmgr/internal/shared/id"
	"github.com/corelinkhq/kernelmgr/internal/shared/types"
	"github.com/corelinkhq/kernelmgr/internal/transport"
)

// Transport is the wire surface the manager consumes. Implemented by the
// transport client; narrowed here for dependency injection in tests.
type Transport interface {
	ListSpecs(ctx context.Context) (*types.SpecCollection, error)
	ListRunning(ctx context.Context) ([]types.KernelModel, error)
	StartKernel(ctx context.Context, opts types.StartOptions) (types.KernelModel, error)
	ShutdownKernel(ctx context.Context, kernelID string) error
}

// idleAfter is how long after the last lifecycle operation a manager with no
// observers is considered idle for the when-idle standby policy.
const idleAfter = 30 * time.Second

// Manager coordinates the client-side view of one kernel service: which
// specs are installed, which instances are running, and the connections this
// process holds against them. It owns two poll schedulers, keeps the caches
// eventually consistent with the server, and multicasts change
// notifications.
//
// Lifecycle: created -> ready -> disposed. Readiness settles once, after the
// first successful spec fetch and the first successful running fetch;
// later refresh failures only leave a cache stale, never un-ready the
// manager. No state is shared between Manager instances.
type Manager struct {
	id        id.ManagerID
	transport Transport
	dialer    ChannelDialer
	log       *logging.Logger

	// metrics is attached after construction in some hosts while the poller
	// goroutines are already reading it, hence the atomic pointer.
	metrics atomic.Pointer[monitoring.Metrics]

	// specsNotifyMu/runningNotifyMu pair each cache commit with its
	// emission, so observers receive snapshots in commit order. Held across
	// the corresponding mutation and emit; always acquired before mu.
	specsNotifyMu   sync.Mutex
	runningNotifyMu sync.Mutex

	mu         sync.Mutex
	specs      *types.SpecCollection
	running    map[string]types.KernelModel
	conns      map[string][]*Connection
	disposed   bool
	gotSpecs   bool
	gotRunning bool
	lastOp     time.Time

	ready          *future.Future
	specsChanged   *events.Signal[types.SpecCollection]
	runningChanged *events.Signal[[]types.KernelModel]

	specPoller    *poll.Scheduler
	runningPoller *poll.Scheduler
}

// NewManager creates a manager and starts both pollers immediately.
// The dialer is optional; without it vended connections cannot attach
// channels but remain fully usable for lifecycle tracking.
func NewManager(tc Transport, cfg *config.Config, log *logging.Logger) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Nop()
	}

	m := &Manager{
		id:             id.NewManagerID(),
		transport:      tc,
		log:            log.Named("kernels"),
		running:        make(map[string]types.KernelModel),
		conns:          make(map[string][]*Connection),
		lastOp:         time.Now(),
		ready:          future.New(),
		specsChanged:   events.NewSignal[types.SpecCollection](),
		runningChanged: events.NewSignal[[]types.KernelModel](),
	}
	if dialer, ok := tc.(ChannelDialer); ok {
		m.dialer = dialer
	}

	policy := poll.StandbyPolicy(poll.Never)
	if strings.EqualFold(cfg.Poll.Standby, "when-idle") {
		policy = poll.WhenIdle(m.idle)
	}

	m.specPoller = poll.New(poll.Config{
		Name:      "specs",
		Active:    cfg.Poll.SpecsActive,
		Standby:   cfg.Poll.SpecsStandby,
		Policy:    policy,
		Task:      m.refreshSpecsTask,
		Logger:    log,
		OnTick:    m.tickObserver("specs"),
		OnStandby: m.standbyObserver("specs"),
	})
	m.runningPoller = poll.New(poll.Config{
		Name:      "running",
		Active:    cfg.Poll.RunningActive,
		Standby:   cfg.Poll.RunningStandby,
		Policy:    policy,
		Task:      m.refreshRunningTask,
		Logger:    log,
		OnTick:    m.tickObserver("running"),
		OnStandby: m.standbyObserver("running"),
	})

	m.specPoller.Start()
	m.runningPoller.Start()

	return m
}

// WithMetrics attaches a metrics collector. Chainable, safe to call after
// construction even though the pollers are already running.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics.Store(metrics)
	return m
}

// WithDialer overrides the channel dialer used for vended connections.
func (m *Manager) WithDialer(dialer ChannelDialer) *Manager {
	m.dialer = dialer
	return m
}

// ID returns this manager instance's id (mgr_* ULID).
func (m *Manager) ID() id.ManagerID {
	return m.id
}

// Specs returns the most recently fetched spec collection, or nil before the
// first successful fetch. The returned collection is a copy.
func (m *Manager) Specs() *types.SpecCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.specs.Clone()
}

// Running returns a lazy, restartable sequence over a snapshot of the
// running-set cache taken at call time, ordered by instance id.
func (m *Manager) Running() iter.Seq[types.KernelModel] {
	snapshot := m.runningSnapshot()
	return func(yield func(types.KernelModel) bool) {
		for _, model := range snapshot {
			if !yield(model) {
				return
			}
		}
	}
}

// IsReady reports whether both caches have completed a first successful
// fetch. Once true it stays true for the manager's lifetime.
func (m *Manager) IsReady() bool {
	return m.ready.IsSettled()
}

// Ready returns a channel closed once the manager becomes ready.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready.Done()
}

// Wait blocks until readiness or context cancellation. A manager that can
// never complete its first fetches blocks forever; bound it with the
// context.
func (m *Manager) Wait(ctx context.Context) error {
	return m.ready.Wait(ctx)
}

// SpecsChanged is the broadcast channel for spec collection changes.
// Observers receive the new collection; emission order follows mutation
// commit order. Observers may re-read cached state from the callback but
// must not call refresh or lifecycle operations from it.
func (m *Manager) SpecsChanged() *events.Signal[types.SpecCollection] {
	return m.specsChanged
}

// RunningChanged is the broadcast channel for running-set changes.
// Observers receive the current snapshot, ordered by instance id. The same
// callback constraint as SpecsChanged applies.
func (m *Manager) RunningChanged() *events.Signal[[]types.KernelModel] {
	return m.runningChanged
}

// RefreshSpecs forces an out-of-band spec fetch. Unlike poll ticks the
// transport error propagates to the caller. Emits SpecsChanged iff the
// fetched collection differs from the cached one.
func (m *Manager) RefreshSpecs(ctx context.Context) error {
	if err := m.checkDisposed(); err != nil {
		return err
	}
	m.touch()
	return m.specPoller.RefreshNow(ctx)
}

// RefreshRunning forces an out-of-band running-list fetch. Emits
// RunningChanged iff the id set or any record's fields differ.
func (m *Manager) RefreshRunning(ctx context.Context) error {
	if err := m.checkDisposed(); err != nil {
		return err
	}
	m.touch()
	return m.runningPoller.RefreshNow(ctx)
}

// StartNew requests a new kernel instance, inserts its record into the
// running-set cache without waiting for the next poll, emits RunningChanged,
// and returns a registered connection bound to the new id. On transport
// failure the cache is untouched and the error wraps ErrStartFailed.
func (m *Manager) StartNew(ctx context.Context, opts types.StartOptions) (*Connection, error) {
	if err := m.checkDisposed(); err != nil {
		return nil, err
	}
	m.touch()

	model, err := m.transport.StartKernel(ctx, opts)
	if err != nil {
		if mt := m.metrics.Load(); mt != nil {
			mt.TransportErrors.WithLabelValues("start").Inc()
		}
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	m.runningNotifyMu.Lock()
	defer m.runningNotifyMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil, ErrDisposed
	}
	m.running[model.ID] = model
	conn := newConnection(m, m.dialer, model)
	m.conns[model.ID] = append(m.conns[model.ID], conn)
	snapshot := m.runningSnapshotLocked()
	m.mu.Unlock()

	m.log.Info("kernel started",
		zap.String("kernel_id", model.ID),
		zap.String("spec", model.Name),
	)
	if mt := m.metrics.Load(); mt != nil {
		mt.Starts.Inc()
		mt.KernelsRunning.Set(float64(len(snapshot)))
		mt.ConnectionsActive.Inc()
	}
	m.emitRunning(snapshot)

	return conn, nil
}

// ConnectTo vends a connection bound to an instance id the caller asserts
// exists; the id may have been learned out-of-band. No network call, no
// cache mutation, no existence check. If polling later discovers the id is
// gone, the connection is disposed through the external-shutdown path.
func (m *Manager) ConnectTo(model types.KernelModel) (*Connection, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil, ErrDisposed
	}
	m.lastOp = time.Now()
	conn := newConnection(m, m.dialer, model)
	m.conns[model.ID] = append(m.conns[model.ID], conn)
	m.mu.Unlock()

	if mt := m.metrics.Load(); mt != nil {
		mt.ConnectionsActive.Inc()
	}
	return conn, nil
}

// FindByID returns the cached record for an instance id. On a cache miss it
// refreshes the running list once and retries; a second miss returns
// ErrNotFound.
func (m *Manager) FindByID(ctx context.Context, kernelID string) (types.KernelModel, error) {
	if err := m.checkDisposed(); err != nil {
		return types.KernelModel{}, err
	}
	m.touch()

	if model, ok := m.lookup(kernelID); ok {
		return model, nil
	}

	if err := m.runningPoller.RefreshNow(ctx); err != nil {
		return types.KernelModel{}, err
	}

	if model, ok := m.lookup(kernelID); ok {
		return model, nil
	}
	return types.KernelModel{}, fmt.Errorf("%w: %s", ErrNotFound, kernelID)
}

// Shutdown terminates an instance on the server, removes it from the cache,
// disposes every registered connection bound to it, and emits
// RunningChanged, all before returning. A server-side 404 counts as success
// so shutdown is idempotent.
func (m *Manager) Shutdown(ctx context.Context, kernelID string) error {
	if err := m.checkDisposed(); err != nil {
		return err
	}
	m.touch()

	if err := m.transport.ShutdownKernel(ctx, kernelID); err != nil {
		if !transport.IsNotFound(err) {
			if mt := m.metrics.Load(); mt != nil {
				mt.TransportErrors.WithLabelValues("shutdown").Inc()
			}
			return err
		}
		m.log.Debug("shutdown of already-gone kernel", zap.String("kernel_id", kernelID))
	}

	m.runningNotifyMu.Lock()
	defer m.runningNotifyMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrDisposed
	}
	_, existed := m.running[kernelID]
	delete(m.running, kernelID)
	orphaned := m.conns[kernelID]
	delete(m.conns, kernelID)
	snapshot := m.runningSnapshotLocked()
	m.mu.Unlock()

	for _, conn := range orphaned {
		conn.markDisposed()
	}

	m.log.Info("kernel shut down", zap.String("kernel_id", kernelID))
	if mt := m.metrics.Load(); mt != nil {
		mt.Shutdowns.Inc()
		mt.KernelsRunning.Set(float64(len(snapshot)))
		mt.ConnectionsActive.Sub(float64(len(orphaned)))
	}
	if existed || len(orphaned) > 0 {
		m.emitRunning(snapshot)
	}
	return nil
}

// Close disposes the manager: both pollers stop, all registered connections
// are disposed, caches are cleared, observers are dropped. Idempotent.
// In-flight network calls complete but their results are discarded.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	var orphaned []*Connection
	for _, conns := range m.conns {
		orphaned = append(orphaned, conns...)
	}
	m.conns = make(map[string][]*Connection)
	m.running = make(map[string]types.KernelModel)
	m.specs = nil
	m.mu.Unlock()

	m.specPoller.Stop()
	m.runningPoller.Stop()

	for _, conn := range orphaned {
		conn.markDisposed()
	}
	m.specsChanged.Clear()
	m.runningChanged.Clear()

	m.log.Info("manager disposed", zap.String("manager_id", m.id.String()))
	return nil
}

// ---- internals ----

func (m *Manager) checkDisposed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDisposed
	}
	return nil
}

// touch records lifecycle activity for the when-idle standby policy.
func (m *Manager) touch() {
	m.mu.Lock()
	m.lastOp = time.Now()
	m.mu.Unlock()
}

// idle reports whether nothing is watching: no observers on either channel
// and no lifecycle operation within idleAfter.
func (m *Manager) idle() bool {
	if m.specsChanged.Len() > 0 || m.runningChanged.Len() > 0 {
		return false
	}
	m.mu.Lock()
	last := m.lastOp
	m.mu.Unlock()
	return time.Since(last) > idleAfter
}

func (m *Manager) lookup(kernelID string) (types.KernelModel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	model, ok := m.running[kernelID]
	return model, ok
}

func (m *Manager) runningSnapshot() []types.KernelModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningSnapshotLocked()
}

func (m *Manager) runningSnapshotLocked() []types.KernelModel {
	snapshot := make([]types.KernelModel, 0, len(m.running))
	for _, model := range m.running {
		snapshot = append(snapshot, model)
	}
	slices.SortFunc(snapshot, func(a, b types.KernelModel) int {
		return strings.Compare(a.ID, b.ID)
	})
	return snapshot
}

// deregister removes one connection handle on local disposal.
func (m *Manager) deregister(conn *Connection) {
	m.mu.Lock()
	kernelID := conn.model.ID
	registered := m.conns[kernelID]
	for i, c := range registered {
		if c == conn {
			m.conns[kernelID] = append(registered[:i], registered[i+1:]...)
			break
		}
	}
	if len(m.conns[kernelID]) == 0 {
		delete(m.conns, kernelID)
	}
	m.mu.Unlock()

	if mt := m.metrics.Load(); mt != nil {
		mt.ConnectionsActive.Dec()
	}
}

// tickObserver feeds scheduler tick outcomes into metrics.
func (m *Manager) tickObserver(poller string) func(skipped bool, err error) {
	return func(skipped bool, err error) {
		mt := m.metrics.Load()
		if mt == nil {
			return
		}
		if skipped {
			mt.PollSkips.WithLabelValues(poller).Inc()
			return
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		mt.PollTicks.WithLabelValues(poller, result).Inc()
	}
}

// standbyObserver feeds interval selection into metrics.
func (m *Manager) standbyObserver(poller string) func(standby bool) {
	return func(standby bool) {
		mt := m.metrics.Load()
		if mt == nil {
			return
		}
		var v float64
		if standby {
			v = 1
		}
		mt.PollStandby.WithLabelValues(poller).Set(v)
	}
}

// refreshSpecsTask is the spec poller's task; also runs under RefreshSpecs.
func (m *Manager) refreshSpecsTask(ctx context.Context) error {
	start := time.Now()
	collection, err := m.transport.ListSpecs(ctx)
	if mt := m.metrics.Load(); mt != nil {
		mt.ObserveRefresh("specs", time.Since(start), err)
	}
	if err != nil {
		return err
	}
	m.commitSpecs(collection)
	return nil
}

// refreshRunningTask is the running poller's task; also runs under
// RefreshRunning.
func (m *Manager) refreshRunningTask(ctx context.Context) error {
	start := time.Now()
	models, err := m.transport.ListRunning(ctx)
	if mt := m.metrics.Load(); mt != nil {
		mt.ObserveRefresh("running", time.Since(start), err)
	}
	if err != nil {
		return err
	}
	m.commitRunning(models)
	return nil
}

// commitSpecs replaces the spec cache and notifies iff content changed.
// Results arriving after disposal are discarded.
func (m *Manager) commitSpecs(collection *types.SpecCollection) {
	m.specsNotifyMu.Lock()
	defer m.specsNotifyMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	changed := !collection.Equal(m.specs)
	m.specs = collection.Clone()
	m.gotSpecs = true
	m.settleReadyLocked()
	payload := m.specs.Clone()
	m.mu.Unlock()

	if changed {
		if mt := m.metrics.Load(); mt != nil {
			mt.Notifications.WithLabelValues("specs").Inc()
		}
		m.specsChanged.Emit(*payload)
	}
}

// commitRunning replaces the running-set cache with the server's view and
// notifies iff content changed. The server snapshot is ground truth: a
// record inserted by a StartNew that this poll predates can be transiently
// reverted, bounded by one poll interval. Instances that vanished are routed
// through the external-shutdown path for their connections.
func (m *Manager) commitRunning(models []types.KernelModel) {
	m.runningNotifyMu.Lock()
	defer m.runningNotifyMu.Unlock()

	next := make(map[string]types.KernelModel, len(models))
	for _, model := range models {
		next[model.ID] = model
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}

	changed := len(next) != len(m.running)
	if !changed {
		for kernelID, model := range next {
			prev, ok := m.running[kernelID]
			if !ok || !prev.Equal(model) {
				changed = true
				break
			}
		}
	}

	var orphaned []*Connection
	for kernelID := range m.conns {
		if _, ok := m.running[kernelID]; !ok {
			continue // connected out-of-band, instance never cached
		}
		if _, ok := next[kernelID]; !ok {
			orphaned = append(orphaned, m.conns[kernelID]...)
			delete(m.conns, kernelID)
		}
	}

	m.running = next
	m.gotRunning = true
	m.settleReadyLocked()
	snapshot := m.runningSnapshotLocked()
	m.mu.Unlock()

	for _, conn := range orphaned {
		m.log.Info("kernel gone, disposing connection",
			zap.String("kernel_id", conn.model.ID),
			zap.String("connection_id", conn.id.String()),
		)
		conn.markDisposed()
	}

	if mt := m.metrics.Load(); mt != nil {
		mt.KernelsRunning.Set(float64(len(snapshot)))
		if len(orphaned) > 0 {
			mt.ConnectionsActive.Sub(float64(len(orphaned)))
		}
	}
	if changed {
		m.emitRunning(snapshot)
	}
}

func (m *Manager) emitRunning(snapshot []types.KernelModel) {
	if mt := m.metrics.Load(); mt != nil {
		mt.Notifications.WithLabelValues("running").Inc()
	}
	m.runningChanged.Emit(snapshot)
}

// settleReadyLocked resolves readiness once both first fetches have landed.
func (m *Manager) settleReadyLocked() {
	if m.gotSpecs && m.gotRunning {
		m.ready.Resolve()
	}
}
