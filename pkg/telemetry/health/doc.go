// Package health provides liveness and readiness probes for long-running
// rulebench processes such as the scheduler daemon.
//
// # Endpoints
//
//   - /health: the process is running
//   - /ready: every registered check passes (503 otherwise)
//   - /version: build information
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("storage", health.StoreCheck(store))
//	checker.RegisterCheck("scheduler", func(ctx context.Context) error {
//	    if !sched.IsRunning() {
//	        return errors.New("scheduler stopped")
//	    }
//	    return nil
//	})
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, version.Info())
package health
