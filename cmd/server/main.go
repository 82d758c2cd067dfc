// Command server runs the collaborative markdown editor: it accepts
// connections over one of the pluggable transports, applies incoming
// commands on a periodic broadcast tick, and exposes a small debug REPL
// (DOC?, LOG?, QUIT) on stdin for operators and integration tests.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/inkdoc/inkdoc/internal/audit"
	"github.com/inkdoc/inkdoc/internal/document"
	"github.com/inkdoc/inkdoc/internal/roles"
	"github.com/inkdoc/inkdoc/internal/session"
	"github.com/inkdoc/inkdoc/internal/transport/fifo"
	"github.com/inkdoc/inkdoc/internal/transport/netline"
	"github.com/inkdoc/inkdoc/internal/transport/wsline"
	"github.com/inkdoc/inkdoc/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "inkdoc-server",
		Usage: "collaborative markdown editor server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Value:   "tcp",
				Usage:   "transport to accept connections on: tcp, ws, or fifo",
				EnvVars: []string{"INKDOC_TRANSPORT"},
			},
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":4000",
				Usage:   "listen address for the tcp/ws transports",
				EnvVars: []string{"INKDOC_ADDR"},
			},
			&cli.StringFlag{
				Name:    "fifo-dir",
				Value:   ".",
				Usage:   "directory holding the c2s/s2c named pipes for the fifo transport",
				EnvVars: []string{"INKDOC_FIFO_DIR"},
			},
			&cli.StringFlag{
				Name:    "roles",
				Value:   "roles.txt",
				Usage:   "path to the username-to-role table, hot-reloaded on edit",
				EnvVars: []string{"INKDOC_ROLES_FILE"},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Value:   100 * time.Millisecond,
				Usage:   "broadcast tick interval",
				EnvVars: []string{"INKDOC_BROADCAST_INTERVAL"},
			},
			&cli.StringFlag{
				Name:    "audit-db",
				Usage:   "optional SQLite DSN for persisting the permanent version log",
				EnvVars: []string{"INKDOC_AUDIT_DB"},
			},
			&cli.StringFlag{
				Name:    "content",
				Usage:   "path to a file containing the document's initial content",
				EnvVars: []string{"INKDOC_INITIAL_CONTENT"},
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Value:   "doc.md",
				Usage:   "path QUIT writes the final flattened document to",
				EnvVars: []string{"INKDOC_SNAPSHOT_PATH"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, or error",
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
	os.Setenv("LOG_LEVEL", c.String("log-level"))
	logger.Init()

	roleTable, err := roles.Load(c.String("roles"))
	if err != nil {
		return fmt.Errorf("loading roles file: %w", err)
	}
	defer roleTable.Close()

	doc := document.New()
	if contentPath := c.String("content"); contentPath != "" {
		content, err := os.ReadFile(contentPath)
		if err != nil {
			return fmt.Errorf("reading initial content: %w", err)
		}
		doc.Lock()
		doc.ApplyInsertLocked(0, content)
		doc.Unlock()
		doc.CommitVersion()
	}

	var auditSink session.AuditSink
	if dsn := c.String("audit-db"); dsn != "" {
		store, err := audit.Open(dsn)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()
		auditSink = store
	}

	state := session.NewServerState(doc, roleTable, c.Duration("interval"), auditSink)
	defer state.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go state.RunTicks(ctx)

	if err := serveTransport(ctx, c, state); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("server: shutting down on signal")
		cancel()
	}()

	runREPL(ctx, cancel, state, c.String("snapshot"))
	return nil
}

// serveTransport starts accepting connections on the configured
// transport in the background, handing each one to state.Handle.
func serveTransport(ctx context.Context, c *cli.Context, state *session.ServerState) error {
	switch c.String("transport") {
	case "tcp":
		ln, err := netline.Listen("tcp", c.String("addr"))
		if err != nil {
			return fmt.Errorf("listening on %s: %w", c.String("addr"), err)
		}
		logger.Info("server: listening (tcp) on %s", ln.Addr())
		go acceptLoop(ctx, ln.Accept, state)
		go func() { <-ctx.Done(); ln.Close() }()

	case "ws":
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			conn, err := wsline.Accept(w, r)
			if err != nil {
				logger.Error("server: websocket upgrade failed: %v", err)
				return
			}
			state.Handle(conn)
		})
		srv := &http.Server{Addr: c.String("addr"), Handler: mux}
		logger.Info("server: listening (ws) on %s", c.String("addr"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("server: websocket listener failed: %v", err)
			}
		}()
		go func() { <-ctx.Done(); srv.Close() }()

	case "fifo":
		dir := c.String("fifo-dir")
		c2s := dir + "/c2s"
		s2c := dir + "/s2c"
		if err := fifo.Ensure(c2s, 0o600); err != nil {
			return err
		}
		if err := fifo.Ensure(s2c, 0o600); err != nil {
			return err
		}
		logger.Info("server: listening (fifo) on %s / %s", c2s, s2c)
		go func() {
			for {
				conn, err := fifo.ListenPair(c2s, s2c)
				if err != nil {
					logger.Error("server: fifo listen failed: %v", err)
					return
				}
				go state.Handle(conn)
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}()

	default:
		return fmt.Errorf("unknown transport %q (want tcp, ws, or fifo)", c.String("transport"))
	}
	return nil
}

func acceptLoop(ctx context.Context, accept func() (io.ReadWriteCloser, error), state *session.ServerState) {
	for {
		conn, err := accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Error("server: accept failed: %v", err)
				return
			}
		}
		go state.Handle(conn)
	}
}

// runREPL drives the operator-facing debug commands until QUIT succeeds
// or the context is canceled: DOC? flattens the live document, LOG?
// replays the full permanent version history, QUIT refuses while any
// client remains connected, otherwise commits, snapshots, and exits.
func runREPL(ctx context.Context, cancel context.CancelFunc, state *session.ServerState, snapshotPath string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch line := strings.TrimSpace(scanner.Text()); line {
		case "DOC?":
			fmt.Println(string(state.Doc.Flatten()))
		case "LOG?":
			for _, entry := range state.Log() {
				fmt.Printf("VERSION %d\n", entry.Version)
				for _, l := range entry.Lines {
					fmt.Println(l)
				}
				fmt.Println("END")
			}
		case "QUIT":
			content, ok := state.Shutdown()
			if !ok {
				fmt.Printf("QUIT rejected, %d clients still connected\n", state.ClientCount())
				continue
			}
			if err := os.WriteFile(snapshotPath, content, 0o644); err != nil {
				logger.Error("server: writing snapshot: %v", err)
			}
			cancel()
			return
		default:
			if line != "" {
				fmt.Printf("unknown command %q\n", line)
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
