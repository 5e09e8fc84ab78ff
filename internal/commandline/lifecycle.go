package commandline

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [service...]",
	Short: "Start existing containers",
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
		return orch.Start(ctx, p, args)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [service...]",
	Short: "Stop running containers",
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
		return orch.Stop(ctx, p, args)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart [service...]",
	Short: "Restart containers",
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
		return orch.Restart(ctx, p, args)
	},
}

var killCmd = &cobra.Command{
	Use:   "kill [service...]",
	Short: "Force-stop containers with a signal",
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
		sig, _ := cmd.Flags().GetString("signal")
		return orch.Kill(ctx, p, args, sig)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [service...]",
	Short: "Pause running containers",
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
		return orch.Pause(ctx, p, args)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause [service...]",
	Short: "Unpause paused containers",
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
		return orch.Unpause(ctx, p, args)
	},
}

func init() {
	killCmd.Flags().String("signal", "SIGKILL", "signal to send")
}
