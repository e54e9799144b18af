package container

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
)

// SystemPruneReport aggregates the reports of a system prune. Volumes are
// not part of it.
type SystemPruneReport struct {
	Containers     types.ContainersPruneReport
	Networks       types.NetworksPruneReport
	Images         types.ImagesPruneReport
	BuildCache     *types.BuildCachePruneReport
	SpaceReclaimed uint64
}

// PruneContainers removes stopped containers.
func (c *Client) PruneContainers(ctx context.Context) (types.ContainersPruneReport, error) {
	return track(c, "prune containers", func() (types.ContainersPruneReport, error) {
		return c.engine.ContainersPrune(ctx, filters.NewArgs())
	})
}

// PruneImages removes dangling images.
func (c *Client) PruneImages(ctx context.Context) (types.ImagesPruneReport, error) {
	return track(c, "prune images", func() (types.ImagesPruneReport, error) {
		return c.engine.ImagesPrune(ctx, filters.NewArgs())
	})
}

// PruneVolumes removes anonymous volumes no container uses.
func (c *Client) PruneVolumes(ctx context.Context) (types.VolumesPruneReport, error) {
	return track(c, "prune volumes", func() (types.VolumesPruneReport, error) {
		return c.engine.VolumesPrune(ctx, filters.NewArgs())
	})
}

// PruneNetworks removes networks no container uses.
func (c *Client) PruneNetworks(ctx context.Context) (types.NetworksPruneReport, error) {
	return track(c, "prune networks", func() (types.NetworksPruneReport, error) {
		return c.engine.NetworksPrune(ctx, filters.NewArgs())
	})
}

// PruneBuildCache removes the whole build cache.
func (c *Client) PruneBuildCache(ctx context.Context) (*types.BuildCachePruneReport, error) {
	return track(c, "prune build cache", func() (*types.BuildCachePruneReport, error) {
		return c.engine.BuildCachePrune(ctx, types.BuildCachePruneOptions{All: true})
	})
}

// PruneSystem prunes containers, networks, dangling images and the build
// cache in that order, the way "docker system prune" does. It stops at the
// first failure and returns what was reclaimed up to that point.
func (c *Client) PruneSystem(ctx context.Context) (SystemPruneReport, error) {
	var report SystemPruneReport
	var err error
	if report.Containers, err = c.PruneContainers(ctx); err != nil {
		return report, err
	}
	report.SpaceReclaimed += report.Containers.SpaceReclaimed
	if report.Networks, err = c.PruneNetworks(ctx); err != nil {
		return report, err
	}
	if report.Images, err = c.PruneImages(ctx); err != nil {
		return report, err
	}
	report.SpaceReclaimed += report.Images.SpaceReclaimed
	if report.BuildCache, err = c.PruneBuildCache(ctx); err != nil {
		return report, err
	}
	// Engines without BuildKit answer with an empty body.
	if report.BuildCache != nil {
		report.SpaceReclaimed += report.BuildCache.SpaceReclaimed
	}
	return report, nil
}
