package daemon

import "errors"

// Sentinel errors for daemon operations, matched with errors.Is
var (
	// ErrDaemonNotRunning indicates the daemon is not currently running
	ErrDaemonNotRunning = errors.New("daemon is not running")

	// ErrDaemonAlreadyRunning indicates a live daemon already owns the state directory
	ErrDaemonAlreadyRunning = errors.New("daemon is already running")

	// ErrDaemonStartFailed indicates the daemon failed to start
	ErrDaemonStartFailed = errors.New("daemon failed to start")

	// ErrDaemonStopFailed indicates the engine did not stop cleanly
	ErrDaemonStopFailed = errors.New("daemon failed to stop")
)
