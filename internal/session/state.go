package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/inkdoc/inkdoc/internal/document"
	"github.com/inkdoc/inkdoc/internal/markdown"
	"github.com/inkdoc/inkdoc/internal/protocol"
	"github.com/inkdoc/inkdoc/internal/roles"
	"github.com/inkdoc/inkdoc/pkg/logger"
)

// AuditSink persists the permanent, append-only version-log history.
// internal/audit implements this against SQLite; it is optional — a nil
// Audit field on ServerState simply skips persistence.
type AuditSink interface {
	AppendVersion(version uint64, lines []string) error
}

// VersionEntry is one tick's worth of broadcast history, kept in memory
// for LOG? regardless of whether an AuditSink is also configured.
type VersionEntry struct {
	Version uint64
	Lines   []string
}

// ServerState is the shared state every connected session's goroutine
// and the single broadcast-tick goroutine operate on: the document, the
// role oracle, the pending command queue, the registry of connected
// sessions, and the permanent version log.
type ServerState struct {
	Doc      *document.Document
	Roles    *roles.Table
	Interval time.Duration
	Audit    AuditSink

	queueMu sync.Mutex
	queue   []QueuedCommand

	sessions    *registry
	clientCount atomic.Int32

	logMu sync.Mutex
	log   []VersionEntry
}

// NewServerState constructs a ServerState around an already-built
// document and role table.
func NewServerState(doc *document.Document, roleTable *roles.Table, interval time.Duration, audit AuditSink) *ServerState {
	return &ServerState{
		Doc:      doc,
		Roles:    roleTable,
		Interval: interval,
		Audit:    audit,
		sessions: newRegistry(),
	}
}

// Enqueue appends a command to the pending queue, stamping it with the
// document's version at the moment of receipt.
func (s *ServerState) Enqueue(sessionID, username, role, commandLine string) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.queue = append(s.queue, QueuedCommand{
		SessionID:     sessionID,
		Username:      username,
		Role:          role,
		CommandLine:   commandLine,
		ClientVersion: s.Doc.Version(),
		Arrival:       time.Now(),
	})
}

// ClientCount returns the number of currently registered sessions, used
// to gate the debug REPL's QUIT command.
func (s *ServerState) ClientCount() int32 { return s.clientCount.Load() }

// register adds a newly authorized session to the broadcast fan-out
// list and increments the connected-client count.
func (s *ServerState) register(sess *registeredSession) {
	s.sessions.add(sess)
	s.clientCount.Add(1)
}

// unregister removes a session from the fan-out list and decrements the
// connected-client count.
func (s *ServerState) unregister(id string) {
	s.sessions.remove(id)
	s.clientCount.Add(-1)
}

// RunTicks drives the broadcast loop until ctx is canceled, processing
// the queue once per Interval.
func (s *ServerState) RunTicks(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick drains the queue, authorizes and dispatches each command in
// arrival order, committing immediately after every success (spec.md's
// Open Question 1 — preserved, not redesigned: a later same-tick command
// can observe the bumped version and be rejected OUTDATED_VERSION), then
// broadcasts the resulting VERSION/EDIT.../END block to every registered
// session and appends it to the permanent log.
func (s *ServerState) tick() {
	s.queueMu.Lock()
	cmds := s.queue
	s.queue = nil
	s.queueMu.Unlock()

	stableSortByArrival(cmds)

	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		lines = append(lines, s.process(cmd))
	}

	version := s.Doc.Version()
	block := protocol.Block{Version: version, Lines: lines}
	s.broadcast(block)

	s.logMu.Lock()
	s.log = append(s.log, VersionEntry{Version: version, Lines: lines})
	s.logMu.Unlock()

	if s.Audit != nil {
		if err := s.Audit.AppendVersion(version, lines); err != nil {
			logger.Error("session: audit append for version %d failed: %v", version, err)
		}
	}
}

// process authorizes and dispatches one queued command, committing on
// success, and returns its EDIT log line.
func (s *ServerState) process(cmd QueuedCommand) string {
	if cmd.Role == "read" {
		logger.Debug("session: rejecting write command from read-only user %s", cmd.Username)
		return protocol.FormatUnauthorisedLine(cmd.Username, cmd.CommandLine)
	}

	if err := protocol.ValidateLine(cmd.CommandLine); err != nil {
		logger.Debug("session: %s sent an invalid line: %v", cmd.Username, err)
		return protocol.FormatEditLine(cmd.Username, cmd.CommandLine, &markdown.Error{Kind: markdown.InvalidPosition})
	}

	parsed, err := protocol.ParseCommand(cmd.CommandLine)
	if err != nil {
		return protocol.FormatEditLine(cmd.Username, cmd.CommandLine, &markdown.Error{Kind: markdown.InvalidPosition})
	}

	_, dispatchErr := markdown.Dispatch(s.Doc, cmd.ClientVersion, parsed)
	if dispatchErr == nil {
		s.Doc.CommitVersion()
		logger.Debug("session: %s %s SUCCESS (version %d)", cmd.Username, cmd.CommandLine, s.Doc.Version())
	} else {
		logger.Debug("session: %s %s rejected: %v", cmd.Username, cmd.CommandLine, dispatchErr)
	}
	return protocol.FormatEditLine(cmd.Username, cmd.CommandLine, dispatchErr)
}

// broadcast fans a block out to every registered session, dropping any
// session whose write fails (Open Question 3: drop on fan-out failure
// rather than buffering for retry).
func (s *ServerState) broadcast(block protocol.Block) {
	for _, sess := range s.sessions.snapshot() {
		if err := protocol.WriteBlock(sess.w, block); err != nil {
			logger.Error("session: dropping %s after broadcast write failure: %v", sess.username, err)
			s.unregister(sess.id)
		}
	}
}

// Log returns the full permanent version history for the LOG? query.
func (s *ServerState) Log() []VersionEntry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]VersionEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Shutdown performs the final commit-and-snapshot sequence used by the
// server's QUIT debug command: it refuses unless every session has
// disconnected, otherwise committing any remaining pending edits one
// last time and returning the final flattened document.
func (s *ServerState) Shutdown() (content []byte, ok bool) {
	if s.ClientCount() != 0 {
		return nil, false
	}
	s.Doc.CommitVersion()
	return s.Doc.Flatten(), true
}

// Close releases resources owned directly by ServerState (currently just
// the role table's file watcher), aggregating any non-fatal errors.
func (s *ServerState) Close() error {
	var result *multierror.Error
	if s.Roles != nil {
		if err := s.Roles.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
