package cluster

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/waabox/opsdeck/internal/domain"
)

// DeploymentSpec describes a single-container deployment labelled app=<Name>.
type DeploymentSpec struct {
	Name      string
	Namespace string
	Image     string
	Replicas  int32
}

// ServiceSpec describes a single-port service.
type ServiceSpec struct {
	Name       string
	Namespace  string
	Type       corev1.ServiceType
	Port       int32
	TargetPort int32
	// Selector defaults to app=<Name>.
	Selector map[string]string
}

// JobSpec describes a run-to-completion job with one container.
type JobSpec struct {
	Name        string
	Namespace   string
	Image       string
	Command     []string
	Completions int32
	Parallelism int32
}

func orOne(n int32) *int32 {
	if n < 1 {
		n = 1
	}
	return &n
}

// List operations treat an empty namespace as all namespaces.

// ListPods lists pods.
func (c *Client) ListPods(ctx context.Context, namespace string) domain.Outcome[[]corev1.Pod] {
	return call(c, "list pods", func() ([]corev1.Pod, error) {
		l, err := c.core.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListDeployments lists deployments.
func (c *Client) ListDeployments(ctx context.Context, namespace string) domain.Outcome[[]appsv1.Deployment] {
	return call(c, "list deployments", func() ([]appsv1.Deployment, error) {
		l, err := c.core.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListServices lists services.
func (c *Client) ListServices(ctx context.Context, namespace string) domain.Outcome[[]corev1.Service] {
	return call(c, "list services", func() ([]corev1.Service, error) {
		l, err := c.core.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListJobs lists jobs.
func (c *Client) ListJobs(ctx context.Context, namespace string) domain.Outcome[[]batchv1.Job] {
	return call(c, "list jobs", func() ([]batchv1.Job, error) {
		l, err := c.core.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListConfigMaps lists config maps.
func (c *Client) ListConfigMaps(ctx context.Context, namespace string) domain.Outcome[[]corev1.ConfigMap] {
	return call(c, "list configmaps", func() ([]corev1.ConfigMap, error) {
		l, err := c.core.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListSecrets lists secrets.
func (c *Client) ListSecrets(ctx context.Context, namespace string) domain.Outcome[[]corev1.Secret] {
	return call(c, "list secrets", func() ([]corev1.Secret, error) {
		l, err := c.core.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// ListNamespaces lists namespaces.
func (c *Client) ListNamespaces(ctx context.Context) domain.Outcome[[]corev1.Namespace] {
	return call(c, "list namespaces", func() ([]corev1.Namespace, error) {
		l, err := c.core.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		return l.Items, nil
	})
}

// CreateDeployment creates a deployment from spec.
func (c *Client) CreateDeployment(ctx context.Context, spec DeploymentSpec) domain.Outcome[*appsv1.Deployment] {
	ns := c.ns(spec.Namespace)
	labels := map[string]string{"app": spec.Name}
	d := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: ns},
		Spec: appsv1.DeploymentSpec{
			Replicas: orOne(spec.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: spec.Name, Image: spec.Image}},
				},
			},
		},
	}
	return call(c, "create deployment", func() (*appsv1.Deployment, error) {
		return c.core.AppsV1().Deployments(ns).Create(ctx, d, metav1.CreateOptions{})
	})
}

// CreateService creates a service from spec.
func (c *Client) CreateService(ctx context.Context, spec ServiceSpec) domain.Outcome[*corev1.Service] {
	ns := c.ns(spec.Namespace)
	selector := spec.Selector
	if selector == nil {
		selector = map[string]string{"app": spec.Name}
	}
	svcType := spec.Type
	if svcType == "" {
		svcType = corev1.ServiceTypeClusterIP
	}
	target := spec.TargetPort
	if target == 0 {
		target = spec.Port
	}
	s := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: ns},
		Spec: corev1.ServiceSpec{
			Type:     svcType,
			Selector: selector,
			Ports:    []corev1.ServicePort{{Port: spec.Port, TargetPort: intstr.FromInt32(target)}},
		},
	}
	return call(c, "create service", func() (*corev1.Service, error) {
		return c.core.CoreV1().Services(ns).Create(ctx, s, metav1.CreateOptions{})
	})
}

// CreateJob creates a job from spec. Pods are never restarted.
func (c *Client) CreateJob(ctx context.Context, spec JobSpec) domain.Outcome[*batchv1.Job] {
	ns := c.ns(spec.Namespace)
	j := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: ns},
		Spec: batchv1.JobSpec{
			Completions: orOne(spec.Completions),
			Parallelism: orOne(spec.Parallelism),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Name: spec.Name},
				Spec: corev1.PodSpec{
					Containers:    []corev1.Container{{Name: spec.Name, Image: spec.Image, Command: spec.Command}},
					RestartPolicy: corev1.RestartPolicyNever,
				},
			},
		},
	}
	return call(c, "create job", func() (*batchv1.Job, error) {
		return c.core.BatchV1().Jobs(ns).Create(ctx, j, metav1.CreateOptions{})
	})
}

// CreateConfigMap creates a config map holding data.
func (c *Client) CreateConfigMap(ctx context.Context, name, namespace string, data map[string]string) domain.Outcome[*corev1.ConfigMap] {
	ns := c.ns(namespace)
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Data:       data,
	}
	return call(c, "create configmap", func() (*corev1.ConfigMap, error) {
		return c.core.CoreV1().ConfigMaps(ns).Create(ctx, cm, metav1.CreateOptions{})
	})
}

// CreateSecret creates an opaque secret holding data.
func (c *Client) CreateSecret(ctx context.Context, name, namespace string, data map[string][]byte) domain.Outcome[*corev1.Secret] {
	ns := c.ns(namespace)
	s := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
	return call(c, "create secret", func() (*corev1.Secret, error) {
		return c.core.CoreV1().Secrets(ns).Create(ctx, s, metav1.CreateOptions{})
	})
}

// CreateNamespace creates a namespace.
func (c *Client) CreateNamespace(ctx context.Context, name string) domain.Outcome[*corev1.Namespace] {
	n := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	return call(c, "create namespace", func() (*corev1.Namespace, error) {
		return c.core.CoreV1().Namespaces().Create(ctx, n, metav1.CreateOptions{})
	})
}

// DeleteDeployment deletes a deployment.
func (c *Client) DeleteDeployment(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindDeployment, name, namespace)
}

// DeleteService deletes a service.
func (c *Client) DeleteService(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindService, name, namespace)
}

// DeletePod deletes a pod.
func (c *Client) DeletePod(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindPod, name, namespace)
}

// DeleteJob deletes a job together with its pods.
func (c *Client) DeleteJob(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindJob, name, namespace)
}

// DeleteConfigMap deletes a config map.
func (c *Client) DeleteConfigMap(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindConfigMap, name, namespace)
}

// DeleteSecret deletes a secret.
func (c *Client) DeleteSecret(ctx context.Context, name, namespace string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindSecret, name, namespace)
}

// DeleteNamespace deletes a namespace and everything in it.
func (c *Client) DeleteNamespace(ctx context.Context, name string) domain.Outcome[struct{}] {
	return c.DeleteResource(ctx, KindNamespace, name, "")
}

// GetDeployment returns one deployment.
func (c *Client) GetDeployment(ctx context.Context, name, namespace string) domain.Outcome[*appsv1.Deployment] {
	return call(c, "get deployment", func() (*appsv1.Deployment, error) {
		return c.core.AppsV1().Deployments(c.ns(namespace)).Get(ctx, name, metav1.GetOptions{})
	})
}

// GetService returns one service.
func (c *Client) GetService(ctx context.Context, name, namespace string) domain.Outcome[*corev1.Service] {
	return call(c, "get service", func() (*corev1.Service, error) {
		return c.core.CoreV1().Services(c.ns(namespace)).Get(ctx, name, metav1.GetOptions{})
	})
}

// GetPod returns one pod.
func (c *Client) GetPod(ctx context.Context, name, namespace string) domain.Outcome[*corev1.Pod] {
	return call(c, "get pod", func() (*corev1.Pod, error) {
		return c.core.CoreV1().Pods(c.ns(namespace)).Get(ctx, name, metav1.GetOptions{})
	})
}
