// Package container is the Docker Engine facade. Every operation passes the
// engine's own result through and returns its error unchanged in detail.
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

const system = "docker"

// Config selects the engine endpoint. Empty fields fall back to DOCKER_HOST,
// DOCKER_API_VERSION and friends; without APIVersion the version is negotiated.
type Config struct {
	Host       string
	APIVersion string
	Recorder   telemetry.Recorder
}

// Client is the Docker facade.
type Client struct {
	engine client.APIClient
	rec    telemetry.Recorder
}

// New connects to the engine and pings it.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("connecting to %s: %w", cli.DaemonHost(), engineError("ping", err))
	}
	return NewWithEngine(cli, cfg.Recorder), nil
}

// NewWithEngine wraps an existing engine client.
func NewWithEngine(engine client.APIClient, rec telemetry.Recorder) *Client {
	return &Client{engine: engine, rec: rec}
}

// Close releases the engine connection.
func (c *Client) Close() error {
	return c.engine.Close()
}

func track[T any](c *Client, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	if err != nil {
		err = engineError(op, err)
	}
	c.rec.Done(op, start, err)
	return v, err
}

func trackErr(c *Client, op string, fn func() error) error {
	_, err := track(c, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// engineError classifies err using the engine's errdefs and keeps its text.
func engineError(op string, err error) error {
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return err
	}
	status := 0
	switch {
	case errdefs.IsNotFound(err):
		status = http.StatusNotFound
	case errdefs.IsConflict(err):
		status = http.StatusConflict
	case errdefs.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case errdefs.IsForbidden(err):
		status = http.StatusForbidden
	case errdefs.IsInvalidParameter(err):
		status = http.StatusBadRequest
	case errdefs.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	case errdefs.IsSystem(err):
		status = http.StatusInternalServerError
	case client.IsErrConnectionFailed(err), errors.Is(err, context.DeadlineExceeded):
		return domain.TransportError(system, op, err)
	}
	kind := domain.KindUnknown
	if status != 0 {
		kind = domain.KindForStatus(status)
	}
	return &domain.RemoteError{
		System: system,
		Op:     op,
		Status: status,
		Kind:   kind,
		Detail: err.Error(),
		Err:    err,
	}
}
