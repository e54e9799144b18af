// Package cluster is the Kubernetes facade: typed CRUD for a fixed set of
// namespaced kinds plus manifest apply through discovery.
//
// Reads are absorbed (List* and Get* fall back to empty on failure through
// Outcome.OrEmpty); mutations are booleanized through Outcome.OK. Callers that
// need the remote detail use Outcome.Get.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

const system = "kubernetes"

// DefaultNamespace is used by create, get and delete calls that pass no namespace.
const DefaultNamespace = "default"

// Config selects the kubeconfig and context. Empty Kubeconfig follows the
// usual KUBECONFIG / ~/.kube/config lookup.
type Config struct {
	Kubeconfig string
	Context    string
	Namespace  string
	Recorder   telemetry.Recorder
}

// Client is the Kubernetes facade.
type Client struct {
	core      kubernetes.Interface
	dynamic   dynamic.Interface
	mapper    meta.RESTMapper
	namespace string
	rec       telemetry.Recorder
}

// New loads the kubeconfig and checks that the API server answers.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		rules.ExplicitPath = cfg.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.Context}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	core, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w", err)
	}
	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := core.Discovery().ServerVersion(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", restConfig.Host, remoteError("server version", err))
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(core.Discovery()))
	return NewWithClients(core, dyn, mapper, cfg.Namespace, cfg.Recorder), nil
}

// NewWithClients builds a Client over existing clients. Tests pass fakes here.
func NewWithClients(core kubernetes.Interface, dyn dynamic.Interface, mapper meta.RESTMapper, namespace string, rec telemetry.Recorder) *Client {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{core: core, dynamic: dyn, mapper: mapper, namespace: namespace, rec: rec}
}

// Namespace returns the namespace used when a call passes none.
func (c *Client) Namespace() string {
	return c.namespace
}

func (c *Client) ns(namespace string) string {
	if namespace == "" {
		return c.namespace
	}
	return namespace
}

// call runs fn, records it and converts API errors into domain errors.
func call[T any](c *Client, op string, fn func() (T, error)) domain.Outcome[T] {
	start := time.Now()
	v, err := fn()
	if err != nil {
		err = remoteError(op, err)
	}
	c.rec.Done(op, start, err)
	return domain.From(v, err)
}

func done(c *Client, op string, fn func() error) domain.Outcome[struct{}] {
	return call(c, op, func() (struct{}, error) { return struct{}{}, fn() })
}

// remoteError keeps the API status code and message of err.
func remoteError(op string, err error) error {
	var re *domain.RemoteError
	if errors.As(err, &re) || errors.Is(err, domain.ErrUnsupportedKind) {
		return err
	}
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		s := status.Status()
		return &domain.RemoteError{
			System: system,
			Op:     op,
			Status: int(s.Code),
			Kind:   domain.KindForStatus(int(s.Code)),
			Detail: s.Message,
			Err:    err,
		}
	}
	if meta.IsNoMatchError(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnsupportedKind, err)
	}
	return domain.TransportError(system, op, err)
}
