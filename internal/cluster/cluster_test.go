package cluster_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/waabox/opsdeck/internal/cluster"
	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

var (
	deploymentGVR = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	configMapGVR  = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
	namespaceGVR  = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
)

func testMapper() meta.RESTMapper {
	m := meta.NewDefaultRESTMapper(nil)
	m.Add(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, meta.RESTScopeNamespace)
	m.Add(schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, meta.RESTScopeNamespace)
	m.Add(schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot)
	return m
}

func newTestClient(objects ...runtime.Object) (*cluster.Client, *fake.Clientset, *dynamicfake.FakeDynamicClient) {
	core := fake.NewSimpleClientset(objects...)
	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())
	return cluster.NewWithClients(core, dyn, testMapper(), "team", telemetry.NopRecorder("kubernetes")), core, dyn
}

func pod(name, namespace string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
}

func TestParseKind(t *testing.T) {
	for input, want := range map[string]cluster.Kind{
		"deployment": cluster.KindDeployment,
		"Deploy":     cluster.KindDeployment,
		"svc":        cluster.KindService,
		"pods":       cluster.KindPod,
		"cm":         cluster.KindConfigMap,
		"secret":     cluster.KindSecret,
		"ns":         cluster.KindNamespace,
		"jobs":       cluster.KindJob,
	} {
		got, err := cluster.ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := cluster.ParseKind("ingress")
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestNewWithClients_DefaultNamespace(t *testing.T) {
	c := cluster.NewWithClients(fake.NewSimpleClientset(), nil, nil, "", telemetry.Recorder{})
	assert.Equal(t, cluster.DefaultNamespace, c.Namespace())
}

func TestCreateDeployment(t *testing.T) {
	c, core, _ := newTestClient()

	out := c.CreateDeployment(context.Background(), cluster.DeploymentSpec{Name: "api", Image: "nginx:1.25"})
	require.True(t, out.OK(), "create failed: %v", out.Err())

	d, err := core.AppsV1().Deployments("team").Get(context.Background(), "api", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), *d.Spec.Replicas)
	assert.Equal(t, map[string]string{"app": "api"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, map[string]string{"app": "api"}, d.Spec.Template.Labels)
	require.Len(t, d.Spec.Template.Spec.Containers, 1)
	assert.Equal(t, "nginx:1.25", d.Spec.Template.Spec.Containers[0].Image)
}

func TestCreateDeployment_AlreadyExists(t *testing.T) {
	c, _, _ := newTestClient()
	spec := cluster.DeploymentSpec{Name: "api", Image: "nginx"}

	require.True(t, c.CreateDeployment(context.Background(), spec).OK())
	out := c.CreateDeployment(context.Background(), spec)

	assert.False(t, out.OK())
	assert.Nil(t, out.OrEmpty())
	assert.ErrorIs(t, out.Err(), domain.ErrConflict)
}

func TestCreateService_DefaultsTargetPortAndType(t *testing.T) {
	c, _, _ := newTestClient()

	svc, err := c.CreateService(context.Background(), cluster.ServiceSpec{Name: "api", Port: 80}).Get()
	require.NoError(t, err)
	assert.Equal(t, corev1.ServiceTypeClusterIP, svc.Spec.Type)
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].TargetPort.IntVal)
	assert.Equal(t, map[string]string{"app": "api"}, svc.Spec.Selector)
}

func TestCreateJob_NeverRestarts(t *testing.T) {
	c, _, _ := newTestClient()

	job, err := c.CreateJob(context.Background(), cluster.JobSpec{
		Name: "migrate", Namespace: "batch", Image: "alpine", Command: []string{"echo", "hi"}, Completions: 3,
	}).Get()
	require.NoError(t, err)
	assert.Equal(t, "batch", job.Namespace)
	assert.Equal(t, int32(3), *job.Spec.Completions)
	assert.Equal(t, int32(1), *job.Spec.Parallelism)
	assert.Equal(t, corev1.RestartPolicyNever, job.Spec.Template.Spec.RestartPolicy)
}

func TestCreateConfigMapAndSecret(t *testing.T) {
	c, core, _ := newTestClient()

	require.True(t, c.CreateConfigMap(context.Background(), "settings", "", map[string]string{"mode": "fast"}).OK())
	require.True(t, c.CreateSecret(context.Background(), "creds", "", map[string][]byte{"token": []byte("s3cr3t")}).OK())

	cm, err := core.CoreV1().ConfigMaps("team").Get(context.Background(), "settings", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fast", cm.Data["mode"])
	s, err := core.CoreV1().Secrets("team").Get(context.Background(), "creds", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cr3t"), s.Data["token"])
}

func TestListPods_AbsorbsFailure(t *testing.T) {
	c, core, _ := newTestClient(pod("a", "team"))
	core.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", nil)
	})

	out := c.ListPods(context.Background(), "team")

	assert.Empty(t, out.OrEmpty())
	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err(), domain.ErrForbidden)
	assert.Equal(t, domain.KindDenied, domain.KindOf(out.Err()))
}

func TestListResources_EmptyNamespaceListsAll(t *testing.T) {
	c, _, _ := newTestClient(pod("a", "team"), pod("b", "other"))

	all := c.ListResources(context.Background(), cluster.KindPod, "").OrEmpty()
	assert.Len(t, all, 2)

	team := c.ListPods(context.Background(), "team").OrEmpty()
	require.Len(t, team, 1)
	assert.Equal(t, "a", team[0].Name)
}

func TestGetResource_UsesDefaultNamespace(t *testing.T) {
	c, _, _ := newTestClient(pod("a", "team"))

	obj := c.GetResource(context.Background(), cluster.KindPod, "a", "").OrEmpty()
	require.NotNil(t, obj)
	p, ok := obj.(*corev1.Pod)
	require.True(t, ok)
	assert.Equal(t, "team", p.Namespace)

	missing := c.GetResource(context.Background(), cluster.KindPod, "a", "other")
	assert.Nil(t, missing.OrEmpty())
	assert.ErrorIs(t, missing.Err(), domain.ErrNotFound)
}

func TestListResources_AbsorbsFailure(t *testing.T) {
	c, core, _ := newTestClient(pod("a", "team"))
	core.PrependReactor("list", "deployments", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewServiceUnavailable("etcd leader changed")
	})

	out := c.ListResources(context.Background(), cluster.KindDeployment, "team")

	assert.Empty(t, out.OrEmpty())
	assert.False(t, out.OK())
	assert.Equal(t, domain.KindTransient, domain.KindOf(out.Err()))
	assert.Equal(t, "etcd leader changed", domain.Detail(out.Err()))
	assert.Equal(t, "list failed: etcd leader changed", out.Message("listed", "list failed"))
	assert.Len(t, core.Actions(), 1)
}

func TestGetResource_AbsorbsFailure(t *testing.T) {
	c, core, _ := newTestClient()
	core.PrependReactor("get", "secrets", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "secrets"}, "db", errors.New(`User "ci" cannot get resource "secrets"`))
	})

	out := c.GetResource(context.Background(), cluster.KindSecret, "db", "team")

	assert.Nil(t, out.OrEmpty())
	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err(), domain.ErrForbidden)
	assert.Contains(t, domain.Detail(out.Err()), `User "ci" cannot get resource "secrets"`)
	assert.Len(t, core.Actions(), 1)
}

func TestDeleteResource(t *testing.T) {
	c, core, _ := newTestClient(pod("a", "team"))

	assert.True(t, c.DeletePod(context.Background(), "a", "team").OK())
	_, err := core.CoreV1().Pods("team").Get(context.Background(), "a", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	again := c.DeletePod(context.Background(), "a", "team")
	assert.False(t, again.OK())
	assert.ErrorIs(t, again.Err(), domain.ErrNotFound)
}

func TestDeleteResource_UnsupportedKind(t *testing.T) {
	c, core, _ := newTestClient()

	out := c.DeleteResource(context.Background(), cluster.Kind("ingress"), "web", "team")

	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err(), domain.ErrUnsupportedKind)
	assert.Empty(t, core.Actions())
}

func TestCreateAndDeleteNamespace(t *testing.T) {
	c, _, _ := newTestClient()

	require.True(t, c.CreateNamespace(context.Background(), "staging").OK())
	names := []string{}
	for _, ns := range c.ListNamespaces(context.Background()).OrEmpty() {
		names = append(names, ns.Name)
	}
	assert.Equal(t, []string{"staging"}, names)
	assert.True(t, c.DeleteNamespace(context.Background(), "staging").OK())
}

func deploymentManifest(replicas int64) map[string]any {
	return map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": "api"},
		"spec":       map[string]any{"replicas": replicas},
	}
}

func TestApplyManifest_CreatesThenUpdates(t *testing.T) {
	c, _, dyn := newTestClient()

	created := c.ApplyManifest(context.Background(), deploymentManifest(1))
	require.True(t, created.OK(), "apply failed: %v", created.Err())
	assert.Equal(t, "team", created.OrEmpty().GetNamespace())

	updated := c.ApplyManifest(context.Background(), deploymentManifest(3))
	require.True(t, updated.OK(), "apply failed: %v", updated.Err())

	got, err := dyn.Resource(deploymentGVR).Namespace("team").Get(context.Background(), "api", metav1.GetOptions{})
	require.NoError(t, err)
	replicas, _, err := unstructured.NestedInt64(got.Object, "spec", "replicas")
	require.NoError(t, err)
	assert.Equal(t, int64(3), replicas)
}

func TestApplyManifest_UnknownKindIsUnsupported(t *testing.T) {
	c, _, _ := newTestClient()

	out := c.ApplyManifest(context.Background(), map[string]any{
		"apiVersion": "example.com/v1",
		"kind":       "Widget",
		"metadata":   map[string]any{"name": "w"},
	})

	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err(), domain.ErrUnsupportedKind)
}

func TestApplyManifest_RequiresName(t *testing.T) {
	c, _, _ := newTestClient()

	out := c.ApplyManifest(context.Background(), map[string]any{"apiVersion": "v1", "kind": "ConfigMap"})

	assert.False(t, out.OK())
	assert.Equal(t, domain.KindInvalid, domain.KindOf(out.Err()))
}

func TestApplyManifests_MultiDocument(t *testing.T) {
	c, _, dyn := newTestClient()
	manifests := `
apiVersion: v1
kind: Namespace
metadata:
  name: staging
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
  namespace: staging
data:
  mode: fast
---
`
	applied, err := c.ApplyManifests(context.Background(), strings.NewReader(manifests)).Get()
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "", applied[0].GetNamespace())

	_, err = dyn.Resource(namespaceGVR).Get(context.Background(), "staging", metav1.GetOptions{})
	require.NoError(t, err)
	cm, err := dyn.Resource(configMapGVR).Namespace("staging").Get(context.Background(), "settings", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mode": "fast"}, cm.Object["data"])
}

func TestApplyManifestFile_Missing(t *testing.T) {
	c, _, _ := newTestClient()

	out := c.ApplyManifestFile(context.Background(), "/does/not/exist.yaml")
	assert.False(t, out.OK())
	assert.Empty(t, out.OrEmpty())
}
