package container

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/swarm"
)

// ServiceSpec describes a replicated swarm service running one image.
type ServiceSpec struct {
	Name  string
	Image string
	// Ports maps published ports to target ports.
	Ports map[uint32]uint32
}

// CreateService creates a swarm service and returns its ID.
func (c *Client) CreateService(ctx context.Context, spec ServiceSpec) (string, error) {
	svc := swarm.ServiceSpec{
		Annotations:  swarm.Annotations{Name: spec.Name},
		TaskTemplate: swarm.TaskSpec{ContainerSpec: &swarm.ContainerSpec{Image: spec.Image}},
	}
	if len(spec.Ports) > 0 {
		endpoint := &swarm.EndpointSpec{}
		for published, target := range spec.Ports {
			endpoint.Ports = append(endpoint.Ports, swarm.PortConfig{
				Protocol:      swarm.PortConfigProtocolTCP,
				PublishedPort: published,
				TargetPort:    target,
			})
		}
		svc.EndpointSpec = endpoint
	}
	return track(c, "create service", func() (string, error) {
		resp, err := c.engine.ServiceCreate(ctx, svc, types.ServiceCreateOptions{})
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	})
}

// ListServices lists swarm services.
func (c *Client) ListServices(ctx context.Context) ([]swarm.Service, error) {
	return track(c, "list services", func() ([]swarm.Service, error) {
		return c.engine.ServiceList(ctx, types.ServiceListOptions{})
	})
}

// InspectService returns one swarm service.
func (c *Client) InspectService(ctx context.Context, id string) (swarm.Service, error) {
	return track(c, "inspect service", func() (swarm.Service, error) {
		svc, _, err := c.engine.ServiceInspectWithRaw(ctx, id, types.ServiceInspectOptions{})
		return svc, err
	})
}

// RemoveService removes a swarm service.
func (c *Client) RemoveService(ctx context.Context, id string) error {
	return trackErr(c, "remove service", func() error {
		return c.engine.ServiceRemove(ctx, id)
	})
}

// CreateSecret stores data as a swarm secret and returns its ID.
func (c *Client) CreateSecret(ctx context.Context, name string, data []byte) (string, error) {
	return track(c, "create secret", func() (string, error) {
		resp, err := c.engine.SecretCreate(ctx, swarm.SecretSpec{Annotations: swarm.Annotations{Name: name}, Data: data})
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	})
}

// ListSecrets lists swarm secrets. Secret data is never returned by the engine.
func (c *Client) ListSecrets(ctx context.Context) ([]swarm.Secret, error) {
	return track(c, "list secrets", func() ([]swarm.Secret, error) {
		return c.engine.SecretList(ctx, types.SecretListOptions{})
	})
}

// RemoveSecret removes a swarm secret.
func (c *Client) RemoveSecret(ctx context.Context, id string) error {
	return trackErr(c, "remove secret", func() error {
		return c.engine.SecretRemove(ctx, id)
	})
}

// CreateConfig stores data as a swarm config and returns its ID.
func (c *Client) CreateConfig(ctx context.Context, name string, data []byte) (string, error) {
	return track(c, "create config", func() (string, error) {
		resp, err := c.engine.ConfigCreate(ctx, swarm.ConfigSpec{Annotations: swarm.Annotations{Name: name}, Data: data})
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	})
}

// ListConfigs lists swarm configs.
func (c *Client) ListConfigs(ctx context.Context) ([]swarm.Config, error) {
	return track(c, "list configs", func() ([]swarm.Config, error) {
		return c.engine.ConfigList(ctx, types.ConfigListOptions{})
	})
}

// RemoveConfig removes a swarm config.
func (c *Client) RemoveConfig(ctx context.Context, id string) error {
	return trackErr(c, "remove config", func() error {
		return c.engine.ConfigRemove(ctx, id)
	})
}

// ListNodes lists swarm nodes.
func (c *Client) ListNodes(ctx context.Context) ([]swarm.Node, error) {
	return track(c, "list nodes", func() ([]swarm.Node, error) {
		return c.engine.NodeList(ctx, types.NodeListOptions{})
	})
}

// InspectNode returns one swarm node.
func (c *Client) InspectNode(ctx context.Context, id string) (swarm.Node, error) {
	return track(c, "inspect node", func() (swarm.Node, error) {
		node, _, err := c.engine.NodeInspectWithRaw(ctx, id)
		return node, err
	})
}
