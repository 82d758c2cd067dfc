// Package replica implements the client side of the collaborative
// session: a local document kept in sync with the server by replaying
// only the SUCCESS-outcome commands from each broadcast block, plus the
// permanent log used by the client's own LOG? query.
package replica

import (
	"fmt"
	"strings"
	"sync"

	"github.com/inkdoc/inkdoc/internal/document"
	"github.com/inkdoc/inkdoc/internal/markdown"
	"github.com/inkdoc/inkdoc/internal/protocol"
	"github.com/inkdoc/inkdoc/pkg/logger"
)

// Replica is one client's local mirror of the shared document: a
// document seeded from the handshake snapshot, kept current by
// ApplyBlock, plus the running transcript of every broadcast line ever
// received (for the local LOG? command).
type Replica struct {
	mu   sync.Mutex
	doc  *document.Document
	role string

	log []string
}

// New seeds a replica directly from a handshake Welcome: the content is
// spliced straight into the chunk buffer (not enqueued through Dispatch,
// since there is no prior shared state to reconcile against), and the
// version is stamped to the server's reported value.
func New(welcome protocol.Welcome) *Replica {
	doc := document.New()
	doc.Lock()
	doc.ApplyInsertLocked(0, welcome.Content)
	doc.Unlock()
	doc.SetVersion(welcome.Version)
	return &Replica{doc: doc, role: welcome.Role}
}

// Doc returns the current flattened document content.
func (r *Replica) Doc() []byte {
	return r.doc.Flatten()
}

// Version returns the replica's current local version.
func (r *Replica) Version() uint64 {
	return r.doc.Version()
}

// Perm returns the session's role, as reported at handshake time.
func (r *Replica) Perm() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

// Log returns every line ever received across all broadcast blocks, in
// arrival order, for the local LOG? command.
func (r *Replica) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}

// ApplyBlock ingests one VERSION/EDIT.../END broadcast block: every line
// is appended to the permanent log regardless of outcome, but only the
// lines whose outcome is SUCCESS are re-executed locally. The block's
// edits are committed as a single version bump, and the local version is
// then stamped to the block's own version rather than just incremented,
// since a tick can carry more than one successful commit server-side.
func (r *Replica) ApplyBlock(block protocol.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, fmt.Sprintf("VERSION %d", block.Version))

	for _, line := range block.Lines {
		r.log = append(r.log, line)

		cmdLine, ok := extractSuccessCommand(line)
		if !ok {
			continue
		}
		parsed, err := protocol.ParseCommand(cmdLine)
		if err != nil {
			logger.Debug("replica: could not reparse successful command %q: %v", cmdLine, err)
			continue
		}
		if _, err := markdown.Dispatch(r.doc, r.doc.Version(), parsed); err != nil {
			logger.Debug("replica: local replay of %q diverged: %v", cmdLine, err)
		}
	}

	r.log = append(r.log, "END")

	r.doc.CommitVersion()
	r.doc.SetVersion(block.Version)
}

// extractSuccessCommand pulls the raw command text out of a
// "EDIT <user> <command> SUCCESS" line, mirroring apply_broadcasts in
// the original client: skip the first two space-delimited tokens, then
// truncate at the first occurrence of " SUCCESS" rather than the last —
// faithfully preserving the original's mistruncation if a command's own
// text were ever to contain that literal substring.
func extractSuccessCommand(line string) (string, bool) {
	const prefix = "EDIT "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	rest := line[len(prefix):]

	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return "", false
	}
	rest = rest[sp+1:]

	idx := strings.Index(rest, " SUCCESS")
	if idx < 0 {
		return "", false
	}
	return rest[:idx], true
}

// ValidateCommandLine checks a locally-composed command line before it
// is sent to the server, the same printable-ASCII and length rule the
// server re-checks before dispatching a queued line.
func ValidateCommandLine(line string) error {
	return protocol.ValidateLine(line)
}
