package commandline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"evalgo.org/strata/convergence"
	"evalgo.org/strata/orchestrator"
)

var upCmd = &cobra.Command{
	Use:   "up [service...]",
	Short: "Create and start containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		if err := orchestrator.ResolveProfiles(p, args); err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		strategy, _ := cmd.Flags().GetString("recreate")
		buildAction, _ := cmd.Flags().GetString("build")
		_, err = orch.Up(ctx, p, orchestrator.UpOptions{
			Services:    args,
			Strategy:    convergence.Strategy(strategy),
			BuildAction: convergence.BuildAction(buildAction),
		})
		return err
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove containers, networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		removeOrphans, _ := cmd.Flags().GetBool("remove-orphans")
		removeVolumes, _ := cmd.Flags().GetBool("volumes")
		removeImages, _ := cmd.Flags().GetBool("rmi")
		return orch.Down(ctx, p, orchestrator.DownOptions{
			RemoveOrphans: removeOrphans,
			RemoveVolumes: removeVolumes,
			RemoveImages:  removeImages,
		})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [service...]",
	Short: "Build or rebuild services",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		parallel, _ := cmd.Flags().GetBool("parallel")
		return orch.Build(ctx, p, orchestrator.BuildOptions{Services: args, Parallel: parallel})
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [service...]",
	Short: "Pull service images",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPullPush(cmd, args, true)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [service...]",
	Short: "Push service images",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPullPush(cmd, args, false)
	},
}

func runPullPush(cmd *cobra.Command, args []string, pull bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := loadProject(composeFiles, projectName, profiles)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer orch.Client.Close()

	parallel, _ := cmd.Flags().GetBool("parallel")
	opts := orchestrator.PullPushOptions{Services: args, Parallel: parallel}
	if pull {
		return orch.Pull(ctx, p, opts)
	}
	return orch.Push(ctx, p, opts)
}

var runCmd = &cobra.Command{
	Use:   "run <service> [command...]",
	Short: "Run a one-off command on a service",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		if err := orchestrator.ResolveProfiles(p, args[:1]); err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		result, err := orch.Run(ctx, p, args[0], orchestrator.RunOptions{Command: args[1:]})
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", result.Service, result.Action)
		return nil
	},
}

var psCmd = &cobra.Command{
	Use:   "ps [service...]",
	Short: "List containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		entries, err := orch.Ps(ctx, p, args)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSERVICE\tSTATE\tUPTIME")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Service, e.State, e.Uptime)
		}
		return w.Flush()
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream container events for the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		events, errc := orch.Events(ctx, p)
		enc := json.NewEncoder(os.Stdout)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				_ = enc.Encode(ev)
			case err := <-errc:
				return err
			case <-ctx.Done():
				return nil
			}
		}
	},
}

var scaleCmd = &cobra.Command{
	Use:   "scale <service>=<count>",
	Short: "Scale a service to the given number of containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Client.Close()

		for _, arg := range args {
			name, count, err := parseScaleArg(arg)
			if err != nil {
				return err
			}
			if _, err := orch.Scale(ctx, p, name, count); err != nil {
				return err
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Render the merged project configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(composeFiles, projectName, profiles)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func parseScaleArg(arg string) (string, int, error) {
	name, countStr, ok := strings.Cut(arg, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid scale argument %q, expected service=count", arg)
	}
	var count int
	if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil {
		return "", 0, fmt.Errorf("invalid scale count in %q: %w", arg, err)
	}
	return name, count, nil
}

func init() {
	upCmd.Flags().String("recreate", string(convergence.StrategyChanged), "recreate strategy (changed, always, never)")
	upCmd.Flags().String("build", string(convergence.BuildActionNone), "build action (none, force, skip)")

	downCmd.Flags().Bool("remove-orphans", false, "remove containers for services not defined in the project")
	downCmd.Flags().Bool("volumes", false, "remove named volumes")
	downCmd.Flags().Bool("rmi", false, "remove service images")

	buildCmd.Flags().Bool("parallel", false, "build services concurrently")
	pullCmd.Flags().Bool("parallel", true, "pull images concurrently")
	pushCmd.Flags().Bool("parallel", true, "push images concurrently")
}
