package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FeedbackFileName is the drop file a running session watches for.
// Writing text into it injects the text as operator feedback for the
// next round; the file is consumed and removed.
const FeedbackFileName = "feedback.txt"

// WatchFeedback watches a session directory for the feedback drop file
// and routes its contents through InjectFeedback. It runs until the
// context ends; the returned stop function releases the watcher early.
func (o *Orchestrator) WatchFeedback(ctx context.Context, dir string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Join(dir, FeedbackFileName)

	// Pick up a file dropped before the watch started.
	o.consumeFeedbackFile(target)

	go func() {
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != target {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				o.consumeFeedbackFile(target)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				o.logger.Warn("feedback watcher error", "error", werr)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// consumeFeedbackFile reads, injects, and removes the drop file.
func (o *Orchestrator) consumeFeedbackFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	text := strings.TrimSpace(string(data))
	if text != "" {
		o.InjectFeedback(text)
		o.logger.Info("feedback file consumed", "path", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("failed to remove feedback file", "path", path, "error", err)
	}
}
