// Package fifo implements the named-pipe transport: the direct Go
// analogue of original_source's mkfifo()-based client/server IPC, using
// one FIFO per direction so reads and writes never contend on the same
// file descriptor.
package fifo

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// Conn is a bidirectional byte stream over a pair of named pipes.
type Conn struct {
	r *os.File
	w *os.File
}

func (c *Conn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *Conn) Close() error {
	var result *multierror.Error
	if err := c.r.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.w.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Ensure creates path as a named pipe if it does not already exist.
func Ensure(path string, perm os.FileMode) error {
	if err := unix.Mkfifo(path, uint32(perm)); err != nil {
		if !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("fifo: mkfifo %s: %w", path, err)
		}
	}
	return nil
}

// DialPair opens a session from the client's side: c2sPath for writing,
// s2cPath for reading. Both paths must already exist (see Ensure).
func DialPair(c2sPath, s2cPath string) (*Conn, error) {
	return openPair(c2sPath, s2cPath)
}

// ListenPair opens a session from the server's side: c2sPath for
// reading, s2cPath for writing — the mirror image of DialPair against
// the same pair of paths.
func ListenPair(c2sPath, s2cPath string) (*Conn, error) {
	return openPair(s2cPath, c2sPath)
}

// openPair opens writePath for writing and readPath for reading. Opening
// a FIFO blocks until a peer opens the other end, so the two opens run
// concurrently to avoid an ordering deadlock between the dial and listen
// sides of a session.
func openPair(writePath, readPath string) (*Conn, error) {
	type opened struct {
		f   *os.File
		err error
	}
	writeDone := make(chan opened, 1)
	go func() {
		f, err := os.OpenFile(writePath, os.O_WRONLY, 0)
		writeDone <- opened{f, err}
	}()

	r, err := os.OpenFile(readPath, os.O_RDONLY, 0)
	if err != nil {
		w := <-writeDone
		if w.f != nil {
			w.f.Close()
		}
		return nil, fmt.Errorf("fifo: open %s: %w", readPath, err)
	}

	w := <-writeDone
	if w.err != nil {
		r.Close()
		return nil, fmt.Errorf("fifo: open %s: %w", writePath, w.err)
	}

	return &Conn{r: r, w: w.f}, nil
}
