package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"

	"github.com/waabox/opsdeck/internal/domain"
)

// ApplyManifest creates the object described by manifest, or updates it when
// it already exists. The resource is resolved through API discovery, so any
// kind the server serves can be applied. Namespaced objects without a
// namespace land in the client's default namespace.
func (c *Client) ApplyManifest(ctx context.Context, manifest map[string]any) domain.Outcome[*unstructured.Unstructured] {
	obj := &unstructured.Unstructured{Object: manifest}
	return call(c, "apply manifest", func() (*unstructured.Unstructured, error) {
		return c.apply(ctx, obj)
	})
}

func (c *Client) apply(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" || gvk.Version == "" {
		return nil, invalidManifest(fmt.Sprintf("manifest %q has no apiVersion or kind", obj.GetName()))
	}
	if obj.GetName() == "" {
		return nil, invalidManifest(gvk.Kind + " manifest has no metadata.name")
	}
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, err
	}

	var ri dynamic.ResourceInterface = c.dynamic.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := c.ns(obj.GetNamespace())
		obj.SetNamespace(ns)
		ri = c.dynamic.Resource(mapping.Resource).Namespace(ns)
	}

	existing, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		return ri.Create(ctx, obj, metav1.CreateOptions{})
	case err != nil:
		return nil, err
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	return ri.Update(ctx, obj, metav1.UpdateOptions{})
}

// ApplyManifests applies every document of a YAML or JSON stream in order and
// stops at the first failure.
func (c *Client) ApplyManifests(ctx context.Context, r io.Reader) domain.Outcome[[]*unstructured.Unstructured] {
	return call(c, "apply manifests", func() ([]*unstructured.Unstructured, error) {
		var applied []*unstructured.Unstructured
		dec := yaml.NewYAMLOrJSONDecoder(r, 4096)
		for {
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil {
				if errors.Is(err, io.EOF) {
					return applied, nil
				}
				return applied, invalidManifest(fmt.Sprintf("decoding manifest %d: %v", len(applied)+1, err))
			}
			if len(doc) == 0 {
				continue
			}
			obj, err := c.apply(ctx, &unstructured.Unstructured{Object: doc})
			if err != nil {
				return applied, err
			}
			applied = append(applied, obj)
		}
	})
}

// ApplyManifestFile applies every document of a manifest file.
func (c *Client) ApplyManifestFile(ctx context.Context, path string) domain.Outcome[[]*unstructured.Unstructured] {
	f, err := os.Open(path)
	if err != nil {
		return domain.Fail[[]*unstructured.Unstructured](fmt.Errorf("opening manifest: %w", err))
	}
	defer f.Close()
	return c.ApplyManifests(ctx, f)
}

func invalidManifest(detail string) error {
	return &domain.RemoteError{System: system, Op: "apply manifest", Kind: domain.KindInvalid, Detail: detail}
}
