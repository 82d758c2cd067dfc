// Package memory provides an in-process transport pair for tests: two
// connected io.ReadWriteCloser endpoints backed by net.Pipe, so a
// session and a replica can be wired together without a real listener.
package memory

import (
	"io"
	"net"
)

// Pair returns two synchronously connected endpoints; writes on one
// block until read on the other, exactly like net.Pipe.
func Pair() (io.ReadWriteCloser, io.ReadWriteCloser) {
	return net.Pipe()
}
