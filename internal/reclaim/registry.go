// Package reclaim force-reclaims the OS-level resources behind abandoned
// workers. It tracks live worker handles in a registry keyed by id, kills
// with SIGTERM-then-SIGKILL escalation, and keeps a blind process-name sweep
// as an explicit opt-in last resort. Every operation here runs during
// failure unwinding, so nothing in this package returns an error.
package reclaim

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultKillPause is how long to wait between the soft terminate and the
// forced kill of a surviving process.
const DefaultKillPause = 500 * time.Millisecond

// Registry tracks the process ids backing each live worker handle. Workers
// register themselves once their browser process is up and deregister on a
// clean close; anything still registered is fair game for KillAll.
type Registry struct {
	mu     sync.Mutex
	pids   map[string][]int
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		pids:   make(map[string][]int),
		logger: logger.With(slog.String("component", "reclaim")),
	}
}

// Register records the process ids backing the worker handle id, replacing
// any previous registration for the same handle.
func (r *Registry) Register(id string, pids ...int) {
	live := pids[:0]
	for _, pid := range pids {
		if pid > 0 {
			live = append(live, pid)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids[id] = live
}

// Deregister forgets the worker handle id. Called on clean close.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pids, id)
}

// Kill escalates on the processes of a single handle and forgets it.
func (r *Registry) Kill(id string, pause time.Duration) {
	r.mu.Lock()
	pids := r.pids[id]
	delete(r.pids, id)
	r.mu.Unlock()

	if len(pids) > 0 {
		r.logger.Warn("killing worker processes",
			slog.String("worker_id", id),
			slog.Int("pids", len(pids)),
		)
		KillEscalating(pids, pause)
	}
}

// KillAll escalates on every registered process and empties the registry.
// Used after an attempt timeout, when a hung worker may not have reached its
// own cleanup.
func (r *Registry) KillAll(pause time.Duration) {
	r.mu.Lock()
	var all []int
	for _, pids := range r.pids {
		all = append(all, pids...)
	}
	r.pids = make(map[string][]int)
	r.mu.Unlock()

	if len(all) > 0 {
		r.logger.Warn("sweeping registered worker processes", slog.Int("pids", len(all)))
		KillEscalating(all, pause)
	}
}

// Live returns the number of registered handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pids)
}

// KillEscalating soft-terminates each process, waits pause, then force-kills
// whatever is still alive. Errors are swallowed.
func KillEscalating(pids []int, pause time.Duration) {
	if len(pids) == 0 {
		return
	}
	if pause <= 0 {
		pause = DefaultKillPause
	}

	for _, pid := range pids {
		terminateProcess(pid)
	}
	time.Sleep(pause)
	for _, pid := range pids {
		if processAlive(pid) {
			killProcess(pid)
		}
	}
}
