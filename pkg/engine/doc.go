// Package engine runs every rule set against every dataset concurrently.
//
// A run walks through these steps, checking for a stop request before each:
//
//  1. Load datasets
//  2. Clean (optional)
//  3. Organize (optional)
//  4. Load rule sets and bind them to the vocabularies
//  5. Verify (optional)
//  6. One job per rule set on the shared pool.Scheduler
//
// Each job tests its rule set on every dataset in order, recording the
// per-dataset scores and matrix, then the cumulative matrix, definition and
// trace when enabled.
//
// # Events
//
// Launch returns immediately. Progress is reported on a single buffered
// channel:
//
//	e, err := engine.New(cfg, deps)
//	if err != nil {
//	    return err
//	}
//	if err := e.Launch(ctx); err != nil {
//	    return err
//	}
//	for ev := range e.Events() {
//	    switch ev.Type {
//	    case engine.EventProgress:
//	        fmt.Printf("%.0f%%\n", ev.Progress)
//	    case engine.EventError:
//	        return ev.Err
//	    }
//	}
//
// Progress events are dropped when the buffer is full. Exactly one terminal
// event (Completed, ForceStopped or Error) is always delivered, after which
// the channel is closed.
package engine
