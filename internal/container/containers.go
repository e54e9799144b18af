package container

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// RunSpec describes a container to create and start in the background.
type RunSpec struct {
	Image   string
	Name    string
	Command []string
	Env     []string
	// Platform is "os/arch[/variant]", empty for the engine default.
	Platform string
}

// ExecResult is the captured output of a command run inside a container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ParsePlatform parses "os/arch[/variant]".
func ParsePlatform(s string) (*ocispec.Platform, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid platform %q, want os/arch[/variant]", s)
	}
	p := &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}

// ListContainers lists running containers, or every container when all is set.
func (c *Client) ListContainers(ctx context.Context, all bool) ([]types.Container, error) {
	return track(c, "list containers", func() ([]types.Container, error) {
		return c.engine.ContainerList(ctx, containertypes.ListOptions{All: all})
	})
}

// InspectContainer returns the engine's full view of one container.
func (c *Client) InspectContainer(ctx context.Context, id string) (types.ContainerJSON, error) {
	return track(c, "inspect container", func() (types.ContainerJSON, error) {
		return c.engine.ContainerInspect(ctx, id)
	})
}

// RunContainer creates and starts a container, returning its ID without
// waiting for it to exit.
func (c *Client) RunContainer(ctx context.Context, spec RunSpec) (string, error) {
	platform, err := ParsePlatform(spec.Platform)
	if err != nil {
		return "", err
	}
	return track(c, "run container", func() (string, error) {
		created, err := c.engine.ContainerCreate(ctx,
			&containertypes.Config{Image: spec.Image, Cmd: spec.Command, Env: spec.Env},
			&containertypes.HostConfig{},
			&network.NetworkingConfig{},
			platform,
			spec.Name,
		)
		if err != nil {
			return "", err
		}
		if err := c.engine.ContainerStart(ctx, created.ID, containertypes.StartOptions{}); err != nil {
			return created.ID, err
		}
		return created.ID, nil
	})
}

// StopContainer stops a container. A nil timeout uses the container's own.
func (c *Client) StopContainer(ctx context.Context, id string, timeout *int) error {
	return trackErr(c, "stop container", func() error {
		return c.engine.ContainerStop(ctx, id, containertypes.StopOptions{Timeout: timeout})
	})
}

// RemoveContainer removes a container; force kills it first if running.
func (c *Client) RemoveContainer(ctx context.Context, id string, force bool) error {
	return trackErr(c, "remove container", func() error {
		return c.engine.ContainerRemove(ctx, id, containertypes.RemoveOptions{Force: force})
	})
}

// RenameContainer renames a container.
func (c *Client) RenameContainer(ctx context.Context, id, name string) error {
	return trackErr(c, "rename container", func() error {
		return c.engine.ContainerRename(ctx, id, name)
	})
}

// Stats returns a single resource usage sample.
func (c *Client) Stats(ctx context.Context, id string) (types.StatsJSON, error) {
	return track(c, "container stats", func() (types.StatsJSON, error) {
		resp, err := c.engine.ContainerStatsOneShot(ctx, id)
		if err != nil {
			return types.StatsJSON{}, err
		}
		defer resp.Body.Close()
		var stats types.StatsJSON
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			return types.StatsJSON{}, fmt.Errorf("decoding stats: %w", err)
		}
		return stats, nil
	})
}

// Exec runs cmd inside a running container and waits for it to finish.
func (c *Client) Exec(ctx context.Context, id string, cmd []string) (ExecResult, error) {
	return track(c, "exec", func() (ExecResult, error) {
		created, err := c.engine.ContainerExecCreate(ctx, id, types.ExecConfig{
			Cmd:          cmd,
			AttachStdout: true,
			AttachStderr: true,
		})
		if err != nil {
			return ExecResult{}, err
		}
		hijacked, err := c.engine.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
		if err != nil {
			return ExecResult{}, err
		}
		defer hijacked.Close()

		var stdout, stderr bytes.Buffer
		if _, err := stdcopy.StdCopy(&stdout, &stderr, hijacked.Reader); err != nil {
			return ExecResult{}, fmt.Errorf("reading exec output: %w", err)
		}
		inspect, err := c.engine.ContainerExecInspect(ctx, created.ID)
		if err != nil {
			return ExecResult{}, err
		}
		return ExecResult{ExitCode: inspect.ExitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	})
}

// Logs returns the container's log. tail is a line count or "all".
func (c *Client) Logs(ctx context.Context, id, tail string) (string, error) {
	return track(c, "container logs", func() (string, error) {
		var buf bytes.Buffer
		if err := c.copyOutput(ctx, id, &buf, containertypes.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail}); err != nil {
			return "", err
		}
		return buf.String(), nil
	})
}

// Attach streams the container's output to w until it exits or ctx ends.
// With logs set, output produced before the call is replayed first.
func (c *Client) Attach(ctx context.Context, id string, logs bool, w io.Writer) error {
	return trackErr(c, "attach", func() error {
		if logs {
			return c.copyOutput(ctx, id, w, containertypes.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
		}
		hijacked, err := c.engine.ContainerAttach(ctx, id, containertypes.AttachOptions{Stream: true, Stdout: true, Stderr: true})
		if err != nil {
			return err
		}
		defer hijacked.Close()
		tty, err := c.isTTY(ctx, id)
		if err != nil {
			return err
		}
		return demux(w, hijacked.Reader, tty)
	})
}

func (c *Client) copyOutput(ctx context.Context, id string, w io.Writer, opts containertypes.LogsOptions) error {
	tty, err := c.isTTY(ctx, id)
	if err != nil {
		return err
	}
	rc, err := c.engine.ContainerLogs(ctx, id, opts)
	if err != nil {
		return err
	}
	defer rc.Close()
	return demux(w, rc, tty)
}

func (c *Client) isTTY(ctx context.Context, id string) (bool, error) {
	info, err := c.engine.ContainerInspect(ctx, id)
	if err != nil {
		return false, err
	}
	return info.Config != nil && info.Config.Tty, nil
}

// demux copies a container stream to w. Non-TTY streams are multiplexed.
func demux(w io.Writer, r io.Reader, tty bool) error {
	var err error
	if tty {
		_, err = io.Copy(w, r)
	} else {
		_, err = stdcopy.StdCopy(w, w, r)
	}
	return err
}
