package container

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
)

// ListImages lists the images stored by the engine.
func (c *Client) ListImages(ctx context.Context) ([]image.Summary, error) {
	return track(c, "list images", func() ([]image.Summary, error) {
		return c.engine.ImageList(ctx, types.ImageListOptions{})
	})
}

// InspectImage returns the engine's full view of one image.
func (c *Client) InspectImage(ctx context.Context, ref string) (types.ImageInspect, error) {
	return track(c, "inspect image", func() (types.ImageInspect, error) {
		info, _, err := c.engine.ImageInspectWithRaw(ctx, ref)
		return info, err
	})
}

// PullImage pulls ref and writes the engine's progress to out.
func (c *Client) PullImage(ctx context.Context, ref, platform string, out io.Writer) error {
	return trackErr(c, "pull image", func() error {
		rc, err := c.engine.ImagePull(ctx, ref, types.ImagePullOptions{Platform: platform})
		if err != nil {
			return err
		}
		defer rc.Close()
		return jsonmessage.DisplayJSONMessagesStream(rc, out, 0, false, nil)
	})
}

// PushImage pushes ref using the engine's stored credentials.
func (c *Client) PushImage(ctx context.Context, ref string, out io.Writer) error {
	return trackErr(c, "push image", func() error {
		auth, err := registry.EncodeAuthConfig(registry.AuthConfig{})
		if err != nil {
			return err
		}
		rc, err := c.engine.ImagePush(ctx, ref, types.ImagePushOptions{RegistryAuth: auth})
		if err != nil {
			return err
		}
		defer rc.Close()
		return jsonmessage.DisplayJSONMessagesStream(rc, out, 0, false, nil)
	})
}

// BuildImage builds the directory dir (which must hold a Dockerfile) and tags
// the result. Build output is written to out; a failed step is returned as
// an error carrying the engine's message.
func (c *Client) BuildImage(ctx context.Context, dir, tag string, out io.Writer) error {
	return trackErr(c, "build image", func() error {
		buildContext, err := archive.TarWithOptions(dir, &archive.TarOptions{})
		if err != nil {
			return fmt.Errorf("packing build context: %w", err)
		}
		defer buildContext.Close()
		resp, err := c.engine.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
			Tags:   []string{tag},
			Remove: true,
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil)
	})
}
