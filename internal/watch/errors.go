package watch

import "errors"

// Fatal error kinds returned by Run. Test with errors.Is.
var (
	// ErrSpawn wraps a *process.SpawnError: the command could not be started.
	ErrSpawn = errors.New("spawn failure")

	// ErrWatchInit reports that a watch path could not be watched.
	ErrWatchInit = errors.New("watch initialization failure")

	// ErrEventStream reports an unrecoverable error from the file watcher.
	ErrEventStream = errors.New("event stream failure")

	// ErrStop reports that the previous command could not be confirmed dead,
	// so no new one may be spawned.
	ErrStop = errors.New("stop failure")
)
