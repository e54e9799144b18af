package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/buildserver"
)

func newJenkinsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jenkins",
		Short: "Jenkins jobs, builds, views and nodes",
		Long: `Drive a Jenkins server through its remote access API.

The server and credentials come from the [jenkins] section of the config or
JENKINS_URL, JENKINS_USER and JENKINS_TOKEN. Job names may contain folders,
as in team/service/deploy.`,
	}

	connect := func(ctx context.Context) (*buildserver.Client, error) {
		return buildserver.New(ctx, buildserver.Config{
			URL:      a.cfg.Jenkins.URL,
			Username: a.cfg.Jenkins.Username,
			Token:    a.cfg.Jenkins.Token,
			Recorder: a.recorder("jenkins"),
		})
	}

	// call wires a pass-through command. A nil result prints nothing.
	call := func(use, short string, args cobra.PositionalArgs, fn func(context.Context, *buildserver.Client, []string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := connect(cmd.Context())
				if err != nil {
					return err
				}
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

	cmd.AddCommand(call("version", "Print the server version", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.Version(ctx) }))
	cmd.AddCommand(call("whoami", "Show the authenticated user", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.WhoAmI(ctx) }))
	cmd.AddCommand(call("jobs", "List all jobs, folders included", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.Jobs(ctx) }))
	cmd.AddCommand(call("job <name>", "Show a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.JobInfo(ctx, args[0])
		}))
	cmd.AddCommand(call("last-build <name>", "Show the last build of a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.LastBuild(ctx, args[0])
		}))
	cmd.AddCommand(call("builds <name>", "List the builds of a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.Builds(ctx, args[0])
		}))

	withBuild := func(use, short string, fn func(context.Context, *buildserver.Client, string, int64) (any, error)) *cobra.Command {
		return call(use, short, cobra.ExactArgs(2), func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			number, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid build number %q", args[1])
			}
			return fn(ctx, c, args[0], number)
		})
	}
	cmd.AddCommand(withBuild("build-info <name> <number>", "Show a build",
		func(ctx context.Context, c *buildserver.Client, name string, n int64) (any, error) {
			return c.BuildInfo(ctx, name, n)
		}))
	cmd.AddCommand(withBuild("console <name> <number>", "Print the console output of a build",
		func(ctx context.Context, c *buildserver.Client, name string, n int64) (any, error) {
			return c.ConsoleOutput(ctx, name, n)
		}))
	cmd.AddCommand(withBuild("test-report <name> <number>", "Show the test report of a build",
		func(ctx context.Context, c *buildserver.Client, name string, n int64) (any, error) {
			return c.TestReport(ctx, name, n)
		}))
	cmd.AddCommand(withBuild("stop <name> <number>", "Abort a running build",
		func(ctx context.Context, c *buildserver.Client, name string, n int64) (any, error) {
			return nil, c.StopBuild(ctx, name, n)
		}))

	var params map[string]string
	build := call("build <name>", "Trigger a build and print its queue ID", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.Build(ctx, args[0], params)
		})
	build.Flags().StringToStringVarP(&params, "param", "p", nil, "build parameter as key=value (repeatable)")
	cmd.AddCommand(build)

	var configFile string
	createJob := call("create-job <name>", "Create a job from a config.xml", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			configXML, err := a.jobConfig(configFile)
			if err != nil {
				return nil, err
			}
			return nil, c.CreateJob(ctx, args[0], configXML)
		})
	createJob.Flags().StringVarP(&configFile, "file", "f", "", "config.xml to use (default: jenkins.job_config_xml, then an empty freestyle job)")
	cmd.AddCommand(createJob)

	var reconfigFile string
	reconfig := call("reconfig-job <name>", "Replace the config.xml of a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			configXML, err := os.ReadFile(reconfigFile)
			if err != nil {
				return nil, fmt.Errorf("reading job config: %w", err)
			}
			return nil, c.ReconfigJob(ctx, args[0], string(configXML))
		})
	reconfig.Flags().StringVarP(&reconfigFile, "file", "f", "", "config.xml to upload")
	_ = reconfig.MarkFlagRequired("file")
	cmd.AddCommand(reconfig)

	cmd.AddCommand(call("job-config <name>", "Print the config.xml of a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.JobConfig(ctx, args[0])
		}))
	cmd.AddCommand(call("copy-job <name> <new-name>", "Copy a job", cobra.ExactArgs(2),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.CopyJob(ctx, args[0], args[1])
		}))
	cmd.AddCommand(call("enable-job <name>", "Enable a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.EnableJob(ctx, args[0])
		}))
	cmd.AddCommand(call("disable-job <name>", "Disable a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.DisableJob(ctx, args[0])
		}))
	cmd.AddCommand(call("delete-job <name>", "Delete a job", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.DeleteJob(ctx, args[0])
		}))
	cmd.AddCommand(call("queue", "Show the build queue", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.QueueInfo(ctx) }))
	cmd.AddCommand(call("plugins", "List installed plugins", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.Plugins(ctx) }))

	cmd.AddCommand(call("views", "List views", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.Views(ctx) }))
	cmd.AddCommand(call("view-config <name>", "Print the config.xml of a view", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.ViewConfig(ctx, args[0])
		}))
	cmd.AddCommand(call("delete-view <name>", "Delete a view", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.DeleteView(ctx, args[0])
		}))

	var description string
	createView := call("create-view <name>", "Create an empty list view", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.CreateView(ctx, args[0], description)
		})
	createView.Flags().StringVar(&description, "description", "", "view description")
	cmd.AddCommand(createView)

	cmd.AddCommand(&cobra.Command{
		Use:   "add-to-view <view> <job>...",
		Short: "Add jobs to a list view, skipping those already in it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return printOK(cmd, "adding jobs to view "+args[0], c.AddJobsToView(cmd.Context(), args[0], args[1:]))
		},
	})

	cmd.AddCommand(call("nodes", "List nodes", cobra.NoArgs,
		func(ctx context.Context, c *buildserver.Client, _ []string) (any, error) { return c.Nodes(ctx) }))
	cmd.AddCommand(call("node <name>", "Show a node", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return c.NodeInfo(ctx, args[0])
		}))
	cmd.AddCommand(call("delete-node <name>", "Delete a node", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.DeleteNode(ctx, args[0])
		}))
	cmd.AddCommand(call("enable-node <name>", "Bring a node online", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.EnableNode(ctx, args[0])
		}))

	var offlineMessage string
	disableNode := call("disable-node <name>", "Take a node offline", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			return nil, c.DisableNode(ctx, args[0], offlineMessage)
		})
	disableNode.Flags().StringVar(&offlineMessage, "message", "", "offline reason")
	cmd.AddCommand(disableNode)

	var spec buildserver.NodeSpec
	createNode := call("create-node <name>", "Create a permanent agent", cobra.ExactArgs(1),
		func(ctx context.Context, c *buildserver.Client, args []string) (any, error) {
			spec.Name = args[0]
			return nil, c.CreateNode(ctx, spec)
		})
	createNode.Flags().StringVar(&spec.Description, "description", "", "node description")
	createNode.Flags().IntVar(&spec.NumExecutors, "executors", 0, "number of executors (default 2)")
	createNode.Flags().StringVar(&spec.RemoteFS, "remote-fs", "", "agent root directory (default /var/lib/jenkins)")
	createNode.Flags().StringVar(&spec.Labels, "labels", "", "space separated labels")
	createNode.Flags().BoolVar(&spec.Exclusive, "exclusive", false, "only run jobs tied to this node")
	cmd.AddCommand(createNode)

	return cmd
}

// jobConfig picks the config.xml for a new job: the given file, then the
// configured default, then an empty freestyle project.
func (a *app) jobConfig(file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job config: %w", err)
		}
		return string(b), nil
	}
	if a.cfg.Jenkins.JobConfigXML != "" {
		return a.cfg.Jenkins.JobConfigXML, nil
	}
	return buildserver.EmptyJobConfigXML, nil
}
