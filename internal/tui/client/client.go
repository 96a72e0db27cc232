// Package client connects front-ends to a profile daemon.
package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/matheus3301/charly/internal/rpc"
	"google.golang.org/grpc"
)

// DaemonBinary is the executable started when no daemon answers.
const DaemonBinary = "charlyd"

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn      *grpc.ClientConn
	Session   *rpc.SessionClient
	Chat      *rpc.ChatClient
	History   *rpc.HistoryClient
	Animation *rpc.AnimationClient
	Voice     *rpc.VoiceClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := rpc.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:      conn,
		Session:   rpc.NewSessionClient(conn),
		Chat:      rpc.NewChatClient(conn),
		History:   rpc.NewHistoryClient(conn),
		Animation: rpc.NewAnimationClient(conn),
		Voice:     rpc.NewVoiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Probe checks that a daemon is running and answering on the socket.
func Probe(socketPath string) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Session.Status(ctx, &rpc.StatusRequest{})
	return err == nil
}

// EnsureDaemon starts charlyd for profile unless one already answers, then
// waits up to timeout for it to become ready.
func EnsureDaemon(profile, socketPath string, timeout time.Duration) error {
	if Probe(socketPath) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", profile)
	if err := startDaemon(profile); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return nil
		}
		time.Sleep(300 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not become ready within %s", timeout)
}

// startDaemon prefers a charlyd next to the running executable, then $PATH.
func startDaemon(profile string) error {
	bin := DaemonBinary
	if executable, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(executable), DaemonBinary)
		if _, err := os.Stat(sibling); err == nil {
			bin = sibling
		}
	}

	// Detached and silent: the daemon logs to its profile log file and must
	// not draw over the TUI.
	cmd := exec.Command(bin, "--profile", profile)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
