package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"

	"github.com/waabox/opsdeck/internal/cluster"
)

func newKubeCommand(a *app) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "kube",
		Short: "Kubernetes resources and manifests",
		Long: `Manage Kubernetes resources with the kubeconfig from [kubernetes] or KUBECONFIG.

Supported kinds: deployment, service, pod, job, configmap, secret, namespace.
Reads print an empty result when the request fails; changes print true or false.`,
	}
	cmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "namespace (default: kubernetes.namespace from config)")

	connect := func(ctx context.Context) (*cluster.Client, error) {
		return cluster.New(ctx, cluster.Config{
			Kubeconfig: a.cfg.Kubernetes.Kubeconfig,
			Context:    a.cfg.Kubernetes.Context,
			Namespace:  a.cfg.Kubernetes.NamespaceOrDefault(),
			Recorder:   a.recorder("kubernetes"),
		})
	}

	var allNamespaces bool
	list := &cobra.Command{
		Use:   "list <kind>",
		Short: "List resources of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cluster.ParseKind(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			ns := namespace
			if ns == "" && !allNamespaces {
				ns = c.Namespace()
			}
			return a.printValue(cmd.OutOrStdout(), c.ListResources(cmd.Context(), kind, ns).OrEmpty())
		},
	}
	list.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "list across all namespaces")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <kind> <name>",
		Short: "Get one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cluster.ParseKind(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.printValue(cmd.OutOrStdout(), c.GetResource(cmd.Context(), kind, args[1], namespace).OrEmpty())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <kind> <name>",
		Short: "Delete one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cluster.ParseKind(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return printOK(cmd, "delete "+string(kind), c.DeleteResource(cmd.Context(), kind, args[1], namespace))
		},
	})

	var file string
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Create or update every object of a manifest file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			o := c.ApplyManifestFile(cmd.Context(), file)
			if !o.OK() {
				return o.Err()
			}
			for _, obj := range o.OrEmpty() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s applied\n", obj.GetKind(), obj.GetName())
			}
			return nil
		},
	}
	apply.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON manifest, may hold several documents")
	_ = apply.MarkFlagRequired("file")
	cmd.AddCommand(apply)

	cmd.AddCommand(newKubeCreateCommand(a, connect, &namespace))

	return cmd
}

func newKubeCreateCommand(a *app, connect func(context.Context) (*cluster.Client, error), namespace *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a resource from flags",
	}

	var deployment cluster.DeploymentSpec
	createDeployment := &cobra.Command{
		Use:   "deployment <name>",
		Short: "Create a single-container deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			deployment.Name, deployment.Namespace = args[0], *namespace
			return printOK(cmd, "create deployment", c.CreateDeployment(cmd.Context(), deployment))
		},
	}
	createDeployment.Flags().StringVar(&deployment.Image, "image", "", "container image")
	createDeployment.Flags().Int32Var(&deployment.Replicas, "replicas", 1, "replica count")
	_ = createDeployment.MarkFlagRequired("image")
	cmd.AddCommand(createDeployment)

	var service cluster.ServiceSpec
	var serviceType string
	createService := &cobra.Command{
		Use:   "service <name>",
		Short: "Create a single-port service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			service.Name, service.Namespace = args[0], *namespace
			service.Type = corev1.ServiceType(serviceType)
			return printOK(cmd, "create service", c.CreateService(cmd.Context(), service))
		},
	}
	createService.Flags().Int32Var(&service.Port, "port", 80, "service port")
	createService.Flags().Int32Var(&service.TargetPort, "target-port", 0, "container port (default: port)")
	createService.Flags().StringVar(&serviceType, "type", "", "ClusterIP, NodePort or LoadBalancer")
	createService.Flags().StringToStringVar(&service.Selector, "selector", nil, "pod selector (default app=<name>)")
	cmd.AddCommand(createService)

	var job cluster.JobSpec
	createJob := &cobra.Command{
		Use:   "job <name> -- <command>...",
		Short: "Create a run-to-completion job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			job.Name, job.Namespace, job.Command = args[0], *namespace, args[1:]
			return printOK(cmd, "create job", c.CreateJob(cmd.Context(), job))
		},
	}
	createJob.Flags().StringVar(&job.Image, "image", "", "container image")
	createJob.Flags().Int32Var(&job.Completions, "completions", 1, "successful pods required")
	createJob.Flags().Int32Var(&job.Parallelism, "parallelism", 1, "pods running at once")
	_ = createJob.MarkFlagRequired("image")
	cmd.AddCommand(createJob)

	var configData map[string]string
	createConfigMap := &cobra.Command{
		Use:   "configmap <name>",
		Short: "Create a config map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return printOK(cmd, "create configmap", c.CreateConfigMap(cmd.Context(), args[0], *namespace, configData))
		},
	}
	createConfigMap.Flags().StringToStringVar(&configData, "from-literal", nil, "key=value entry (repeatable)")
	cmd.AddCommand(createConfigMap)

	var secretData map[string]string
	createSecret := &cobra.Command{
		Use:   "secret <name>",
		Short: "Create an opaque secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			data := make(map[string][]byte, len(secretData))
			for k, v := range secretData {
				data[k] = []byte(v)
			}
			return printOK(cmd, "create secret", c.CreateSecret(cmd.Context(), args[0], *namespace, data))
		},
	}
	createSecret.Flags().StringToStringVar(&secretData, "from-literal", nil, "key=value entry (repeatable)")
	cmd.AddCommand(createSecret)

	cmd.AddCommand(&cobra.Command{
		Use:   "namespace <name>",
		Short: "Create a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return printOK(cmd, "create namespace", c.CreateNamespace(cmd.Context(), args[0]))
		},
	})

	return cmd
}
