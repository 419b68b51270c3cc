package ledgerfile

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay matches the teacher's watchIssues debounce window for
// coalescing rapid successive writes into one reload.
const debounceDelay = 500 * time.Millisecond

// Watch watches the directory containing the ledger file at path and
// invokes onChange (debounced) whenever that file is written externally
// — e.g. by another process sharing the same data directory. It blocks
// until stop is closed or ctx-equivalent caller cancellation happens via
// closing stop; callers typically run it in its own goroutine. Grounded
// in the teacher's cmd/bd/list.go watchIssues: an fsnotify.Watcher on
// the containing directory, filtered to Write events on the target
// basename, coalesced with a debounce timer.
func Watch(path string, onChange func(), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(path)

	var debounceTimer *time.Timer
	for {
		select {
		case <-stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || filepath.Base(event.Name) != base {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, onChange)
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
