// Command client connects to an inkdoc server, performs the handshake,
// and then drives a REPL: editing commands are validated and sent to the
// server, broadcast blocks are replayed into a local replica in the
// background, and PERM?/LOG?/DOC?/DISCONNECT are handled locally without
// ever touching the wire.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/inkdoc/inkdoc/internal/protocol"
	"github.com/inkdoc/inkdoc/internal/replica"
	"github.com/inkdoc/inkdoc/internal/transport/fifo"
	"github.com/inkdoc/inkdoc/internal/transport/netline"
	"github.com/inkdoc/inkdoc/internal/transport/wsline"
)

// disconnectLine mirrors the server's session package; the client sends
// it verbatim before closing.
const disconnectLine = "DISCONNECT"

func main() {
	app := &cli.App{
		Name:      "inkdoc-client",
		Usage:     "collaborative markdown editor client",
		ArgsUsage: "<server> <username>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "transport",
				Value: "tcp",
				Usage: "transport to connect over: tcp, ws, or fifo",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: inkdoc-client [--transport tcp|ws|fifo] <server> <username>")
	}
	server := c.Args().Get(0)
	username := c.Args().Get(1)

	conn, err := dial(c.Context, c.String("transport"), server)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if _, err := fmt.Fprintf(conn, "%s\n", username); err != nil {
		return fmt.Errorf("sending username: %w", err)
	}

	firstLine, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	firstLine = strings.TrimRight(firstLine, "\r\n")
	if firstLine == protocol.RejectUnauthorisedLine {
		return fmt.Errorf("server rejected %q: unauthorised", username)
	}
	role := firstLine

	welcome, err := protocol.ReadWelcome(r, role)
	if err != nil {
		return fmt.Errorf("reading welcome: %w", err)
	}

	rep := replica.New(welcome)

	blocksDone := make(chan struct{})
	go applyBroadcastsLoop(r, rep, blocksDone)

	runREPL(conn, rep)

	fmt.Fprintf(conn, "%s\n", disconnectLine)
	<-blocksDone
	return nil
}

func dial(ctx context.Context, transportKind, server string) (io.ReadWriteCloser, error) {
	switch transportKind {
	case "tcp":
		return netline.Dial("tcp", server)
	case "ws":
		return wsline.Dial(ctx, server)
	case "fifo":
		c2s := server + "/c2s"
		s2c := server + "/s2c"
		return fifo.DialPair(c2s, s2c)
	default:
		return nil, fmt.Errorf("unknown transport %q (want tcp, ws, or fifo)", transportKind)
	}
}

// applyBroadcastsLoop mirrors apply_broadcasts: continuously reads
// VERSION/.../END blocks off the wire and folds each into the replica,
// until the connection closes.
func applyBroadcastsLoop(r *bufio.Reader, rep *replica.Replica, done chan<- struct{}) {
	defer close(done)
	for {
		block, err := protocol.ReadBlock(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
			}
			return
		}
		rep.ApplyBlock(block)
	}
}

// runREPL reads commands from stdin until DISCONNECT or EOF, handling
// PERM?/LOG?/DOC? locally and sending everything else to the server
// after the same printable-ASCII/length validation the server applies.
func runREPL(conn io.Writer, rep *replica.Replica) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case disconnectLine:
			return
		case "PERM?":
			fmt.Println(rep.Perm())
			continue
		case "LOG?":
			for _, l := range rep.Log() {
				fmt.Println(l)
			}
			continue
		case "DOC?":
			fmt.Println(string(rep.Doc()))
			continue
		}

		if err := replica.ValidateCommandLine(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send command: %v\n", err)
		}
	}
}
