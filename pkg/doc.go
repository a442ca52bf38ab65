// Package pkg provides utilities shared by the softbulk channel core, the
// link HALs, and the example executables.
//
// It contains:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for buffer, link, and descriptor failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDispatch, "host connected")
//
// Code running in the event context logs only at debug level and checks
// [DebugEnabled] before building attributes.
//
// # Errors
//
//	if errors.Is(err, pkg.ErrDisconnected) {
//	    // the host went away
//	}
package pkg
