package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
)

// Wire protocol paths.
const (
	PathAPI             = "/api/"
	PathStates          = "/api/states"
	PathStatesEntity    = "/api/states/%s"
	PathEvents          = "/api/events"
	PathEventsEvent     = "/api/events/%s"
	PathServices        = "/api/services"
	PathEventForwarding = "/api/event_forwarding"
)

const (
	// DefaultPort is the port a hub API listens on unless told otherwise.
	DefaultPort = 8123

	// DefaultTimeout bounds every wire call. A worker running a forwarding
	// or write-through job is therefore occupied by a stalled peer for at
	// most this long.
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a peer response is read. A full
	// state dump of a large installation fits comfortably.
	maxResponseBytes = 8 << 20
)

// Status classifies the outcome of validating a binding.
type Status string

const (
	StatusOK              Status = "ok"
	StatusInvalidPassword Status = "invalid_password"
	StatusCannotConnect   Status = "cannot_connect"
	StatusUnknown         Status = "unknown"
)

// Binding locates a peer hub's HTTP API and carries the shared secret used
// to call it. The result of validation is cached; use Validate(true) to
// force a re-check after a peer restart.
//
// A Binding is safe for concurrent use and is shared freely between the
// forwarder, remote bus and remote store.
type Binding struct {
	Host     string
	Port     int
	Password string

	client *http.Client

	mu     sync.Mutex
	status Status // empty until the first Validate
}

// NewBinding creates a binding for the API at host:port. A non-positive
// port falls back to DefaultPort and wire calls are bounded by
// DefaultTimeout.
func NewBinding(host string, port int, password string) *Binding {
	if port <= 0 {
		port = DefaultPort
	}
	return &Binding{
		Host:     host,
		Port:     port,
		Password: password,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout replaces the wire call timeout. Calling it while requests are
// in flight is not supported.
func (b *Binding) SetTimeout(d time.Duration) {
	if d > 0 {
		b.client.Timeout = d
	}
}

// Addr returns the host:port pair identifying this binding. Forwarding
// targets are deduplicated on it.
func (b *Binding) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// BaseURL returns the root URL of the peer API.
func (b *Binding) BaseURL() string {
	return "http://" + b.Addr()
}

// Validate reports whether the peer API is reachable and accepts our
// password. The result is cached after the first call; force re-checks.
func (b *Binding) Validate(force bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == "" || force {
		b.status = b.checkStatus()
	}
	return b.status == StatusOK
}

// Status returns the cached validation status. It is empty until the first
// Validate call.
func (b *Binding) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// checkStatus performs the validation round trip. Caller holds b.mu, which
// also collapses concurrent validations into one.
func (b *Binding) checkStatus() Status {
	status, _, err := b.call(context.Background(), http.MethodGet, PathAPI, nil)
	if err != nil {
		return StatusCannotConnect
	}
	switch status {
	case http.StatusOK:
		return StatusOK
	case http.StatusUnauthorized:
		return StatusInvalidPassword
	default:
		return StatusUnknown
	}
}

// call performs one wire round trip. The api_password credential rides in
// the query string for GET requests and in the form body for everything
// else, overriding any caller-supplied value. Transport failures wrap
// ErrUnreachable; response statuses are returned as-is for the caller to
// interpret.
func (b *Binding) call(ctx context.Context, method, path string, form url.Values) (int, []byte, error) {
	if form == nil {
		form = url.Values{}
	}
	form.Set("api_password", b.Password)

	endpoint := b.BaseURL() + path

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+form.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return 0, nil, fmt.Errorf("building request for %s: %w", path, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}
	return resp.StatusCode, body, nil
}

// noopLogger mirrors core's silent default for optional loggers.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func orNoop(logger core.Logger) core.Logger {
	if logger == nil {
		return noopLogger{}
	}
	return logger
}
