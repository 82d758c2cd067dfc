package session

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/inkdoc/inkdoc/internal/protocol"
	"github.com/inkdoc/inkdoc/pkg/logger"
)

// disconnectLine is the command a client sends to end its session
// gracefully, matching original_source/source/client.c.
const disconnectLine = "DISCONNECT"

// Handle runs one client connection end to end: handshake, registration,
// the command-ingestion loop, and cleanup on disconnect. It blocks until
// the client disconnects or the connection fails, so callers should run
// it in its own goroutine per accepted connection.
func (s *ServerState) Handle(conn io.ReadWriteCloser) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	username, err := r.ReadString('\n')
	if err != nil {
		logger.Error("session: reading username: %v", err)
		return
	}
	username = strings.TrimSpace(username)

	role, ok := s.Roles.Lookup(username)
	if !ok {
		logger.Info("session: rejecting unknown user %q", username)
		protocol.WriteReject(conn)
		return
	}

	id := uuid.NewString()
	sess := &registeredSession{id: id, username: username, role: role, w: conn}

	s.Doc.Lock()
	welcome := protocol.Welcome{
		Role:    role,
		Version: s.Doc.VersionLocked(),
		Content: s.Doc.FlattenLocked(),
	}
	s.Doc.Unlock()

	if err := protocol.WriteWelcome(conn, welcome); err != nil {
		logger.Error("session: writing welcome for %q: %v", username, err)
		return
	}

	s.register(sess)
	logger.Info("session: %s connected as %s (%s)", username, id, role)
	defer func() {
		s.unregister(id)
		logger.Info("session: %s disconnected (%s)", username, id)
	}()

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("session: reading from %s: %v", username, err)
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if line == disconnectLine {
			return
		}
		s.Enqueue(id, username, role, line)
	}
}
