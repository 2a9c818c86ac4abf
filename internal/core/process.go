package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// outputLimit bounds how much process output is kept for diagnostics.
const outputLimit = 64 << 10

// ErrNotReady is returned when the application does not answer before the timeout.
var ErrNotReady = errors.New("application did not become ready")

// Process is a launched background process.
type Process interface {
	PID() int
	// Stdout and Stderr return the captured tail of each stream.
	Stdout() string
	Stderr() string
	// Done is closed when the process exits.
	Done() <-chan struct{}
}

// Launcher starts the application as a background process.
type Launcher interface {
	Launch(dir string, argv []string) (Process, error)
}

// HealthChecker answers whether the application endpoint is up.
type HealthChecker interface {
	Healthy(ctx context.Context, url string) bool
}

// Tunnel exposes a local URL publicly and returns the public URL.
type Tunnel interface {
	Open(ctx context.Context, localURL string) (string, error)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append([]byte(nil), b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// ExecLauncher launches processes with os/exec. The process is not tied to
// any context and keeps running after the orchestrator returns.
type ExecLauncher struct {
	Logger *zap.Logger
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *tailBuffer
	stderr *tailBuffer
	done   chan struct{}
}

func (p *execProcess) PID() int              { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() string        { return p.stdout.String() }
func (p *execProcess) Stderr() string        { return p.stderr.String() }
func (p *execProcess) Done() <-chan struct{} { return p.done }

// Launch starts argv in dir with stdout and stderr captured.
func (l ExecLauncher) Launch(dir string, argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &execProcess{
		stdout: &tailBuffer{limit: outputLimit},
		stderr: &tailBuffer{limit: outputLimit},
		done:   make(chan struct{}),
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	p.cmd = cmd

	logger.Info("process started", zap.Strings("argv", argv), zap.Int("pid", cmd.Process.Pid))
	go func() {
		err := cmd.Wait()
		close(p.done)
		if err != nil {
			logger.Warn("process exited with error", zap.Strings("argv", argv), zap.Error(err))
			return
		}
		logger.Info("process exited", zap.Strings("argv", argv))
	}()
	return p, nil
}

// HTTPHealth checks an endpoint with a short-timeout GET.
type HTTPHealth struct {
	Timeout time.Duration
}

// Healthy reports whether url answers with a 2xx status.
func (h HTTPHealth) Healthy(ctx context.Context, url string) bool {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// WaitReady polls url every interval until it is healthy, the timeout
// elapses, the process exits or ctx is cancelled.
func WaitReady(ctx context.Context, health HealthChecker, url string, proc Process, interval, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var exited <-chan struct{}
	if proc != nil {
		exited = proc.Done()
	}

	for {
		if health.Healthy(ctx, url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w within %s", ErrNotReady, timeout)
		case <-exited:
			return fmt.Errorf("%w: process exited", ErrNotReady)
		case <-ticker.C:
		}
	}
}

// DefaultTunnelPattern matches quick-tunnel URLs printed by cloudflared.
var DefaultTunnelPattern = regexp.MustCompile(`https://[-a-zA-Z0-9.]+\.trycloudflare\.com`)

// ExecTunnel runs an external tunnel command and scans its output for the
// first URL matching Pattern. The tunnel process keeps running.
type ExecTunnel struct {
	// Command may reference {host}, {port} and {url}.
	Command string
	Host    string
	Port    int
	Pattern *regexp.Regexp
	Timeout time.Duration
	Logger  *zap.Logger
}

// Open starts the tunnel and waits for its public URL.
func (t ExecTunnel) Open(ctx context.Context, localURL string) (string, error) {
	line := strings.NewReplacer(
		"{host}", t.Host,
		"{port}", strconv.Itoa(t.Port),
		"{url}", localURL,
	).Replace(t.Command)
	argv := splitCommand(line)
	if len(argv) == 0 {
		return "", fmt.Errorf("no tunnel command configured")
	}
	pattern := t.Pattern
	if pattern == nil {
		pattern = DefaultTunnelPattern
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pr, pw := io.Pipe()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting tunnel: %w", err)
	}
	go func() {
		err := cmd.Wait()
		_ = pw.CloseWithError(err)
	}()

	found := make(chan string, 1)
	go scanTunnelURL(pr, pattern, found)

	select {
	case u, ok := <-found:
		if !ok {
			_ = cmd.Process.Kill()
			return "", fmt.Errorf("tunnel exited without printing a URL")
		}
		logger.Info("tunnel ready", zap.String("url", u), zap.Int("pid", cmd.Process.Pid))
		return u, nil
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return "", fmt.Errorf("no tunnel URL within %s", timeout)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return "", ctx.Err()
	}
}

// scanTunnelURL sends the first line match of pattern in r on found, then
// keeps reading until r is exhausted so the writer never blocks on a full
// pipe. found is closed when nothing matched.
func scanTunnelURL(r io.Reader, pattern *regexp.Regexp, found chan<- string) {
	scanner := bufio.NewScanner(r)
	sent := false
	for scanner.Scan() {
		if sent {
			continue
		}
		if m := pattern.FindString(scanner.Text()); m != "" {
			found <- m
			sent = true
		}
	}
	if !sent {
		close(found)
	}
}
