package cluster

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/waabox/opsdeck/internal/domain"
)

// Kind is a resource kind the generic operations know how to handle.
type Kind string

const (
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindPod        Kind = "pod"
	KindJob        Kind = "job"
	KindConfigMap  Kind = "configmap"
	KindSecret     Kind = "secret"
	KindNamespace  Kind = "namespace"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindDeployment, KindService, KindPod, KindJob, KindConfigMap, KindSecret, KindNamespace}

var kindAliases = map[string]Kind{
	"deploy":      KindDeployment,
	"deployments": KindDeployment,
	"svc":         KindService,
	"services":    KindService,
	"po":          KindPod,
	"pods":        KindPod,
	"jobs":        KindJob,
	"cm":          KindConfigMap,
	"configmaps":  KindConfigMap,
	"secrets":     KindSecret,
	"ns":          KindNamespace,
	"namespaces":  KindNamespace,
}

// ParseKind accepts a kind name, its plural or its kubectl short name.
// Anything else is an error wrapping domain.ErrUnsupportedKind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := handlers[Kind(s)]; ok {
		return Kind(s), nil
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%q: %w", s, domain.ErrUnsupportedKind)
}

type handler struct {
	namespaced bool
	get        func(ctx context.Context, c *Client, namespace, name string) (runtime.Object, error)
	list       func(ctx context.Context, c *Client, namespace string) (runtime.Object, error)
	delete     func(ctx context.Context, c *Client, namespace, name string, opts metav1.DeleteOptions) error
}

var handlers = map[Kind]handler{
	KindDeployment: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.AppsV1().Deployments(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			return c.core.AppsV1().Deployments(ns).Delete(ctx, name, opts)
		},
	},
	KindService: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.CoreV1().Services(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.CoreV1().Services(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			return c.core.CoreV1().Services(ns).Delete(ctx, name, opts)
		},
	},
	KindPod: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.CoreV1().Pods(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			return c.core.CoreV1().Pods(ns).Delete(ctx, name, opts)
		},
	},
	KindJob: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.BatchV1().Jobs(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.BatchV1().Jobs(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			// Without a propagation policy the job's pods are orphaned.
			policy := metav1.DeletePropagationBackground
			opts.PropagationPolicy = &policy
			return c.core.BatchV1().Jobs(ns).Delete(ctx, name, opts)
		},
	},
	KindConfigMap: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.CoreV1().ConfigMaps(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.CoreV1().ConfigMaps(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			return c.core.CoreV1().ConfigMaps(ns).Delete(ctx, name, opts)
		},
	},
	KindSecret: {
		namespaced: true,
		get: func(ctx context.Context, c *Client, ns, name string) (runtime.Object, error) {
			return c.core.CoreV1().Secrets(ns).Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, ns string) (runtime.Object, error) {
			return c.core.CoreV1().Secrets(ns).List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, ns, name string, opts metav1.DeleteOptions) error {
			return c.core.CoreV1().Secrets(ns).Delete(ctx, name, opts)
		},
	},
	KindNamespace: {
		get: func(ctx context.Context, c *Client, _, name string) (runtime.Object, error) {
			return c.core.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
		},
		list: func(ctx context.Context, c *Client, _ string) (runtime.Object, error) {
			return c.core.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		},
		delete: func(ctx context.Context, c *Client, _, name string, opts metav1.DeleteOptions) error {
			return c.core.CoreV1().Namespaces().Delete(ctx, name, opts)
		},
	},
}

func lookup(kind Kind) (handler, error) {
	h, ok := handlers[kind]
	if !ok {
		return handler{}, fmt.Errorf("%q: %w", kind, domain.ErrUnsupportedKind)
	}
	return h, nil
}

// GetResource fetches one object of kind. Namespace is ignored for namespaces.
func (c *Client) GetResource(ctx context.Context, kind Kind, name, namespace string) domain.Outcome[runtime.Object] {
	return call(c, "get "+string(kind), func() (runtime.Object, error) {
		h, err := lookup(kind)
		if err != nil {
			return nil, err
		}
		return h.get(ctx, c, c.ns(namespace), name)
	})
}

// ListResources lists objects of kind. An empty namespace lists all namespaces.
func (c *Client) ListResources(ctx context.Context, kind Kind, namespace string) domain.Outcome[[]runtime.Object] {
	return call(c, "list "+string(kind), func() ([]runtime.Object, error) {
		h, err := lookup(kind)
		if err != nil {
			return nil, err
		}
		list, err := h.list(ctx, c, namespace)
		if err != nil {
			return nil, err
		}
		return meta.ExtractList(list)
	})
}

// DeleteResource deletes one object of kind.
func (c *Client) DeleteResource(ctx context.Context, kind Kind, name, namespace string) domain.Outcome[struct{}] {
	return done(c, "delete "+string(kind), func() error {
		h, err := lookup(kind)
		if err != nil {
			return err
		}
		return h.delete(ctx, c, c.ns(namespace), name, metav1.DeleteOptions{})
	})
}
