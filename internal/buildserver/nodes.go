package buildserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	defaultExecutors = 2
	defaultRemoteFS  = "/var/lib/jenkins"
)

func nodePath(name string) string {
	if name == "master" || name == "built-in" {
		name = "(" + name + ")"
	}
	return "/computer/" + url.PathEscape(name)
}

// Nodes lists the controller and every agent.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	var result struct {
		Computer []Node `json:"computer"`
	}
	if err := c.getJSON(ctx, "list nodes", "/computer/api/json", nil, &result); err != nil {
		return nil, err
	}
	return result.Computer, nil
}

// NodeInfo returns one node.
func (c *Client) NodeInfo(ctx context.Context, name string) (Node, error) {
	var n Node
	if err := c.getJSON(ctx, "get node info", nodePath(name)+"/api/json", nil, &n); err != nil {
		return Node{}, err
	}
	return n, nil
}

// CreateNode creates a permanent inbound agent.
func (c *Client) CreateNode(ctx context.Context, spec NodeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("node name is required")
	}
	executors := spec.NumExecutors
	if executors < 1 {
		executors = defaultExecutors
	}
	remoteFS := spec.RemoteFS
	if remoteFS == "" {
		remoteFS = defaultRemoteFS
	}
	mode := "NORMAL"
	if spec.Exclusive {
		mode = "EXCLUSIVE"
	}
	payload, err := json.Marshal(map[string]any{
		"name":              spec.Name,
		"nodeDescription":   spec.Description,
		"numExecutors":      executors,
		"remoteFS":          remoteFS,
		"labelString":       spec.Labels,
		"mode":              mode,
		"type":              "hudson.slaves.DumbSlave$DescriptorImpl",
		"retentionStrategy": map[string]string{"stapler-class": "hudson.slaves.RetentionStrategy$Always"},
		"nodeProperties":    map[string]string{"stapler-class-bag": "true"},
		"launcher":          map[string]string{"stapler-class": "hudson.slaves.JNLPLauncher"},
	})
	if err != nil {
		return fmt.Errorf("encoding node %s: %w", spec.Name, err)
	}
	form := url.Values{
		"name": {spec.Name},
		"type": {"hudson.slaves.DumbSlave$DescriptorImpl"},
		"json": {string(payload)},
	}
	_, err = c.post(ctx, "create node", "/computer/doCreateItem", nil, []byte(form.Encode()), "application/x-www-form-urlencoded")
	return err
}

// DeleteNode removes an agent.
func (c *Client) DeleteNode(ctx context.Context, name string) error {
	_, err := c.post(ctx, "delete node", nodePath(name)+"/doDelete", nil, nil, "")
	return err
}

// EnableNode brings an offline node back online. Online nodes are left alone.
func (c *Client) EnableNode(ctx context.Context, name string) error {
	n, err := c.NodeInfo(ctx, name)
	if err != nil {
		return err
	}
	if !n.Offline {
		return nil
	}
	_, err = c.post(ctx, "enable node", nodePath(name)+"/toggleOffline", url.Values{"offlineMessage": {""}}, nil, "")
	return err
}

// DisableNode takes a node offline with the given message. Offline nodes are left alone.
func (c *Client) DisableNode(ctx context.Context, name, message string) error {
	n, err := c.NodeInfo(ctx, name)
	if err != nil {
		return err
	}
	if n.Offline {
		return nil
	}
	_, err = c.post(ctx, "disable node", nodePath(name)+"/toggleOffline", url.Values{"offlineMessage": {message}}, nil, "")
	return err
}
