package container

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/volume"
)

// ListVolumes lists volumes.
func (c *Client) ListVolumes(ctx context.Context) ([]*volume.Volume, error) {
	return track(c, "list volumes", func() ([]*volume.Volume, error) {
		resp, err := c.engine.VolumeList(ctx, volume.ListOptions{})
		if err != nil {
			return nil, err
		}
		return resp.Volumes, nil
	})
}

// CreateVolume creates a named volume with the default driver.
func (c *Client) CreateVolume(ctx context.Context, name string) (volume.Volume, error) {
	return track(c, "create volume", func() (volume.Volume, error) {
		return c.engine.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	})
}

// RemoveVolume removes a volume that no container uses.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	return trackErr(c, "remove volume", func() error {
		return c.engine.VolumeRemove(ctx, name, false)
	})
}

// ListNetworks lists networks.
func (c *Client) ListNetworks(ctx context.Context) ([]types.NetworkResource, error) {
	return track(c, "list networks", func() ([]types.NetworkResource, error) {
		return c.engine.NetworkList(ctx, types.NetworkListOptions{})
	})
}

// CreateNetwork creates a network and returns its ID. An empty driver uses
// the engine default.
func (c *Client) CreateNetwork(ctx context.Context, name, driver string) (string, error) {
	return track(c, "create network", func() (string, error) {
		resp, err := c.engine.NetworkCreate(ctx, name, types.NetworkCreate{Driver: driver})
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	})
}

// RemoveNetwork removes a network.
func (c *Client) RemoveNetwork(ctx context.Context, id string) error {
	return trackErr(c, "remove network", func() error {
		return c.engine.NetworkRemove(ctx, id)
	})
}
