package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/container"
)

func newDockerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Docker containers, images, volumes, networks and swarm objects",
		Long: `Talk to the Docker engine selected by [docker] or DOCKER_HOST.

Every command reports engine errors as-is.`,
	}

	// call connects, runs fn and prints its result unless it is nil.
	call := func(use, short string, args cobra.PositionalArgs, fn func(context.Context, *container.Client, []string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := container.New(cmd.Context(), container.Config{
					Host:       a.cfg.Docker.Host,
					APIVersion: a.cfg.Docker.APIVersion,
					Recorder:   a.recorder("docker"),
				})
				if err != nil {
					return err
				}
				defer c.Close()
				v, err := fn(cmd.Context(), c, args)
				if err != nil {
					return err
				}
				if v == nil {
					return nil
				}
				return a.printValue(cmd.OutOrStdout(), v)
			},
		}
	}

	var all bool
	ps := call("ps", "List containers", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) {
			return c.ListContainers(ctx, all)
		})
	ps.Flags().BoolVarP(&all, "all", "a", false, "include stopped containers")
	cmd.AddCommand(ps)

	cmd.AddCommand(call("inspect <container>", "Inspect a container", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.InspectContainer(ctx, args[0])
		}))

	var run container.RunSpec
	runCmd := call("run <image> [command]...", "Create and start a container in the background", cobra.MinimumNArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			run.Image, run.Command = args[0], args[1:]
			return c.RunContainer(ctx, run)
		})
	runCmd.Flags().StringVar(&run.Name, "name", "", "container name")
	runCmd.Flags().StringArrayVarP(&run.Env, "env", "e", nil, "environment variable KEY=VALUE (repeatable)")
	runCmd.Flags().StringVar(&run.Platform, "platform", "", "os/arch[/variant]")
	cmd.AddCommand(runCmd)

	var stopTimeout int
	stop := call("stop <container>", "Stop a container", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			var timeout *int
			if stopTimeout >= 0 {
				timeout = &stopTimeout
			}
			return nil, c.StopContainer(ctx, args[0], timeout)
		})
	stop.Flags().IntVarP(&stopTimeout, "time", "t", -1, "seconds to wait before killing (default: engine default)")
	cmd.AddCommand(stop)

	var force bool
	rm := call("rm <container>", "Remove a container", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveContainer(ctx, args[0], force)
		})
	rm.Flags().BoolVarP(&force, "force", "f", false, "remove a running container")
	cmd.AddCommand(rm)

	cmd.AddCommand(call("rename <container> <name>", "Rename a container", cobra.ExactArgs(2),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RenameContainer(ctx, args[0], args[1])
		}))
	cmd.AddCommand(call("stats <container>", "Show a single stats sample", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.Stats(ctx, args[0])
		}))
	cmd.AddCommand(call("exec <container> <command>...", "Run a command in a container", cobra.MinimumNArgs(2),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			res, err := c.Exec(ctx, args[0], args[1:])
			if err != nil {
				return nil, err
			}
			if res.ExitCode != 0 {
				return nil, fmt.Errorf("command exited with %d: %s", res.ExitCode, res.Stderr)
			}
			if a.output == "text" {
				return strings.TrimSuffix(res.Stdout, "\n"), nil
			}
			return res, nil
		}))

	var tail string
	logs := call("logs <container>", "Print container logs", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.Logs(ctx, args[0], tail)
		})
	logs.Flags().StringVar(&tail, "tail", "all", "number of lines from the end")
	cmd.AddCommand(logs)

	var attachLogs bool
	attach := call("attach <container>", "Stream a container's output until it exits", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.Attach(ctx, args[0], attachLogs, os.Stdout)
		})
	attach.Flags().BoolVar(&attachLogs, "logs", false, "replay earlier output first")
	cmd.AddCommand(attach)

	cmd.AddCommand(newDockerImageCommand(call))
	cmd.AddCommand(newDockerVolumeCommand(call))
	cmd.AddCommand(newDockerNetworkCommand(call))
	cmd.AddCommand(newDockerSwarmCommands(call)...)
	cmd.AddCommand(newDockerPruneCommand(call))

	return cmd
}

type dockerCall func(use, short string, args cobra.PositionalArgs, fn func(context.Context, *container.Client, []string) (any, error)) *cobra.Command

func newDockerImageCommand(call dockerCall) *cobra.Command {
	cmd := &cobra.Command{Use: "image", Short: "Manage images"}

	cmd.AddCommand(call("ls", "List images", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListImages(ctx) }))
	cmd.AddCommand(call("inspect <image>", "Inspect an image", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.InspectImage(ctx, args[0])
		}))

	var platform string
	pull := call("pull <ref>", "Pull an image", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.PullImage(ctx, args[0], platform, stderrOut())
		})
	pull.Flags().StringVar(&platform, "platform", "", "os/arch[/variant]")
	cmd.AddCommand(pull)

	cmd.AddCommand(call("push <ref>", "Push an image", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.PushImage(ctx, args[0], stderrOut())
		}))

	var tag string
	build := call("build <dir>", "Build an image from a directory with a Dockerfile", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.BuildImage(ctx, args[0], tag, stderrOut())
		})
	build.Flags().StringVarP(&tag, "tag", "t", "", "name:tag for the image")
	cmd.AddCommand(build)

	return cmd
}

func newDockerVolumeCommand(call dockerCall) *cobra.Command {
	cmd := &cobra.Command{Use: "volume", Short: "Manage volumes"}
	cmd.AddCommand(call("ls", "List volumes", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListVolumes(ctx) }))
	cmd.AddCommand(call("create <name>", "Create a volume", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.CreateVolume(ctx, args[0])
		}))
	cmd.AddCommand(call("rm <name>", "Remove a volume", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveVolume(ctx, args[0])
		}))
	return cmd
}

func newDockerNetworkCommand(call dockerCall) *cobra.Command {
	cmd := &cobra.Command{Use: "network", Short: "Manage networks"}
	cmd.AddCommand(call("ls", "List networks", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListNetworks(ctx) }))

	var driver string
	create := call("create <name>", "Create a network and print its ID", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.CreateNetwork(ctx, args[0], driver)
		})
	create.Flags().StringVarP(&driver, "driver", "d", "bridge", "network driver")
	cmd.AddCommand(create)

	cmd.AddCommand(call("rm <network>", "Remove a network", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveNetwork(ctx, args[0])
		}))
	return cmd
}

func newDockerSwarmCommands(call dockerCall) []*cobra.Command {
	service := &cobra.Command{Use: "service", Short: "Manage swarm services"}
	var spec container.ServiceSpec
	var ports map[string]string
	create := call("create <name> <image>", "Create a replicated service", cobra.ExactArgs(2),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			published, err := parsePorts(ports)
			if err != nil {
				return nil, err
			}
			spec.Name, spec.Image, spec.Ports = args[0], args[1], published
			return c.CreateService(ctx, spec)
		})
	create.Flags().StringToStringVarP(&ports, "publish", "p", nil, "published=target TCP port (repeatable)")
	service.AddCommand(create)
	service.AddCommand(call("ls", "List services", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListServices(ctx) }))
	service.AddCommand(call("inspect <service>", "Inspect a service", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.InspectService(ctx, args[0])
		}))
	service.AddCommand(call("rm <service>", "Remove a service", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveService(ctx, args[0])
		}))

	secret := &cobra.Command{Use: "secret", Short: "Manage swarm secrets"}
	secret.AddCommand(call("create <name> <value>", "Create a secret", cobra.ExactArgs(2),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.CreateSecret(ctx, args[0], []byte(args[1]))
		}))
	secret.AddCommand(call("ls", "List secrets", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListSecrets(ctx) }))
	secret.AddCommand(call("rm <secret>", "Remove a secret", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveSecret(ctx, args[0])
		}))

	config := &cobra.Command{Use: "config", Short: "Manage swarm configs"}
	config.AddCommand(call("create <name> <value>", "Create a config", cobra.ExactArgs(2),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.CreateConfig(ctx, args[0], []byte(args[1]))
		}))
	config.AddCommand(call("ls", "List configs", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListConfigs(ctx) }))
	config.AddCommand(call("rm <config>", "Remove a config", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return nil, c.RemoveConfig(ctx, args[0])
		}))

	node := &cobra.Command{Use: "node", Short: "Inspect swarm nodes"}
	node.AddCommand(call("ls", "List nodes", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.ListNodes(ctx) }))
	node.AddCommand(call("inspect <node>", "Inspect a node", cobra.ExactArgs(1),
		func(ctx context.Context, c *container.Client, args []string) (any, error) {
			return c.InspectNode(ctx, args[0])
		}))

	return []*cobra.Command{service, secret, config, node}
}

func newDockerPruneCommand(call dockerCall) *cobra.Command {
	cmd := call("prune", "Remove stopped containers, unused networks, dangling images and build cache", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneSystem(ctx) })

	cmd.AddCommand(call("containers", "Remove stopped containers", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneContainers(ctx) }))
	cmd.AddCommand(call("images", "Remove dangling images", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneImages(ctx) }))
	cmd.AddCommand(call("volumes", "Remove unused volumes", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneVolumes(ctx) }))
	cmd.AddCommand(call("networks", "Remove unused networks", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneNetworks(ctx) }))
	cmd.AddCommand(call("build-cache", "Remove the build cache", cobra.NoArgs,
		func(ctx context.Context, c *container.Client, _ []string) (any, error) { return c.PruneBuildCache(ctx) }))

	return cmd
}

// parsePorts converts published=target pairs into the service port map.
func parsePorts(in map[string]string) (map[uint32]uint32, error) {
	out := make(map[uint32]uint32, len(in))
	for published, target := range in {
		p, err := strconv.ParseUint(published, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid published port %q", published)
		}
		t, err := strconv.ParseUint(target, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid target port %q", target)
		}
		out[uint32(p)] = uint32(t)
	}
	return out, nil
}

// stderrOut is where engine progress streams go, keeping stdout for results.
func stderrOut() io.Writer {
	return os.Stderr
}
