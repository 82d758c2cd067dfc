// Package roles loads and hot-reloads the username-to-role oracle that
// gates write access to the shared document (spec.md §4.5/§6).
package roles

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/inkdoc/inkdoc/pkg/logger"
)

// Field caps mirror original_source/source/server.c's
// sscanf("%127s %7s", user, role).
const (
	maxUsernameLen = 127
	maxRoleLen     = 7
)

// Table is a hot-reloadable username -> role lookup backed by a flat
// text file of "<username> <role>" lines, one per line.
type Table struct {
	mu      sync.RWMutex
	roles   map[string]string
	path    string
	watcher *fsnotify.Watcher
}

// Load reads path once and returns a Table that watches path for
// further edits, reloading its in-memory map whenever the file changes.
// Callers should Close the returned Table when done.
func Load(path string) (*Table, error) {
	t := &Table{path: path}
	if err := t.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("roles: create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("roles: watch %s: %w", path, err)
	}
	t.watcher = w
	go t.watchLoop()
	return t, nil
}

func (t *Table) watchLoop() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := t.reload(); err != nil {
				logger.Error("roles: reload %s failed: %v", t.path, err)
			} else {
				logger.Info("roles: reloaded %s", t.path)
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("roles: watcher error: %v", err)
		}
	}
}

func (t *Table) reload() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("roles: open %s: %w", t.path, err)
	}
	defer f.Close()

	next := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		user, role := fields[0], fields[1]
		if len(user) > maxUsernameLen || len(role) > maxRoleLen {
			continue
		}
		next[user] = role
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("roles: scan %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.roles = next
	t.mu.Unlock()
	return nil
}

// Lookup returns the role for username and whether it was found.
func (t *Table) Lookup(username string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	role, ok := t.roles[username]
	return role, ok
}

// Close stops the file watcher.
func (t *Table) Close() error {
	if t.watcher == nil {
		return nil
	}
	return t.watcher.Close()
}
