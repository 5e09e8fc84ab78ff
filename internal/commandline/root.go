// Package commandline is strata's CLI front-end over the orchestrator
// verb layer: a thin cobra binding with no colorized output, TTY progress
// bars, or interactive signal handling beyond forwarding ctrl-c as context
// cancellation, grounded on graphium's internal/commands/root.go
// (cobra.OnInitialize + persistent flags) and internal/commands/stack.go
// (one cobra.Command per verb, flags bound with StringVarP/BoolVarP).
package commandline

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalgo.org/strata/config"
	"evalgo.org/strata/engine"
	"evalgo.org/strata/internal/version"
	"evalgo.org/strata/orchestrator"
)

var (
	cfgFile      string
	composeFiles []string
	projectName  string
	profiles     []string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Declarative multi-container application orchestrator",
	Long: `strata drives the Docker Engine API from a declarative, compose-style
application description: it merges config layers, resolves service
identity and dependencies, and converges each service's containers to
match the declared state.`,
	Version: version.Version,
}

// Execute runs the root command; called from cmd/strata/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./strata.yaml)")
	rootCmd.PersistentFlags().StringSliceVarP(&composeFiles, "file", "f", nil, "compose file (repeatable; default: docker-compose.yml)")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project-name", "p", "", "project name (default: directory name)")
	rootCmd.PersistentFlags().StringSliceVar(&profiles, "profile", nil, "profile to enable (repeatable)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, text)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(upCmd, downCmd, psCmd, buildCmd, pullCmd, pushCmd, runCmd,
		startCmd, stopCmd, restartCmd, killCmd, pauseCmd, unpauseCmd, scaleCmd,
		configCmd, eventsCmd, versionCmd)

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so a verb's
// executor fan-out observes cancellation the same way a deadline would.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newOrchestrator dials the configured engine host and wraps it.
func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	cli, err := engine.NewDocker(ctx, cfg.Engine.Host)
	if err != nil {
		return nil, fmt.Errorf("connecting to engine at %s: %w", cfg.Engine.Host, err)
	}
	return orchestrator.New(cli), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Println(info.String())
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			fmt.Printf("\nDetails:\n")
			fmt.Printf("  Version:    %s\n", info.Version)
			fmt.Printf("  Git Commit: %s\n", info.GitCommit)
			fmt.Printf("  Built:      %s\n", info.BuildTime)
			fmt.Printf("  Go Version: %s\n", info.GoVersion)
			fmt.Printf("  Platform:   %s\n", info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "verbose version output")
}
