package domain

// Worker is one isolated execution environment holding the exclusive,
// expensive external resources for a single form-submission attempt, in
// practice one headless browser session.
//
// Submit deliberately takes no context: the work function has no cancellation
// hook. Timeout enforcement is entirely the supervisor's job, which abandons
// a hung Submit and reclaims the worker's resources out of band.
type Worker interface {
	// Submit drives the external form for the given triple and returns the
	// two prediction texts. It may hang indefinitely.
	Submit(triple OddsTriple) (Prediction, error)

	// Close gracefully tears the worker down. It may itself hang; callers
	// bound it with a grace window and escalate to Kill.
	Close() error

	// Kill force-terminates the OS-level processes backing the worker.
	// It must never fail loudly; it runs during failure unwinding.
	Kill()
}

// WorkerFactory creates a fresh Worker per attempt. No session is ever
// reused between attempts, so a poisoned browser state cannot leak forward.
type WorkerFactory interface {
	New() (Worker, error)
}
