// Newtboot - day-0 router bootstrap
//
// Reads a YAML inventory of routers, renders per-vendor configuration
// templates for each one and pushes them through the device's management
// plane in phases:
//
//	connect (parallel) → base config → peer reachability → BGP → close
//
// Examples:
//
//	newtboot --config network.yml                     # Full run
//	newtboot --config network.yml --on-failure skip-device
//	newtboot --config network.yml render              # Print candidates, no device contact
//	newtboot --config network.yml show                # Inventory summary
//	newtboot history --device r1 --last 24h           # Push journal
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/newtboot/pkg/audit"
	"github.com/newtron-network/newtboot/pkg/bootstrap"
	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/driver"
	"github.com/newtron-network/newtboot/pkg/inventory"
	"github.com/newtron-network/newtboot/pkg/metrics"
	"github.com/newtron-network/newtboot/pkg/model"
	"github.com/newtron-network/newtboot/pkg/render"
	"github.com/newtron-network/newtboot/pkg/settings"
	"github.com/newtron-network/newtboot/pkg/util"
	"github.com/newtron-network/newtboot/pkg/version"
)

const (
	journalMaxSize    = 10 * 1024 * 1024 // 10MB
	journalMaxBackups = 10
)

var (
	configPath     string
	logLevel       string
	varsPath       string
	logFile        string
	connectTimeout time.Duration
	opTimeout      time.Duration
	connectRetries int
	onFailure      string
	metricsFile    string
)

// app holds state built by the root pre-run hook
var app struct {
	log  *util.LogSink
	vars *settings.Vars
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if app.log != nil {
		app.log.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "newtboot",
	Short:             "Day-0 router bootstrap",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Newtboot pushes initial hostname, interface and BGP configuration to a
set of routers described in a YAML inventory, then checks that every up
interface can reach its point-to-point peer.

  newtboot --config <inventory.yml> [--vars env.cfg] [--on-failure abort|skip-device]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isMetaCommand(cmd) {
			return nil
		}

		sink, err := util.NewLogger(logLevel, logFile)
		if err != nil {
			return err
		}
		app.log = sink

		vars, err := settings.LoadVars(varsPath)
		if err != nil {
			return err
		}
		app.vars = vars
		return nil
	},
	RunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML inventory of routers")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warning", "Log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&varsPath, "vars", settings.DefaultVarsPath, "Credentials and template settings file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "log/config.log", "Log file, truncated on every run (empty for console only)")

	rootCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 30*time.Second, "Per-device connect timeout (0 disables)")
	rootCmd.Flags().DurationVar(&opTimeout, "op-timeout", 60*time.Second, "Per-push and per-probe timeout (0 disables)")
	rootCmd.Flags().IntVar(&connectRetries, "connect-retries", 0, "Additional connect attempts per device")
	rootCmd.Flags().StringVar(&onFailure, "on-failure", "abort", "Push failure policy: abort or skip-device")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "inventory", Title: "Inventory Commands:"},
		&cobra.Group{ID: "meta", Title: "Meta Commands:"},
	)
	for _, cmd := range []*cobra.Command{renderCmd, showCmd} {
		cmd.GroupID = "inventory"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{historyCmd, driversCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	policy, err := bootstrap.ParsePolicy(onFailure)
	if err != nil {
		return err
	}
	routers, err := loadInventory()
	if err != nil {
		return err
	}
	if err := askPassword(app.vars); err != nil {
		return err
	}
	for _, r := range routers {
		app.log.WithField("device", r.Hostname).Info(r.DeviceInfo())
	}

	m := metrics.New()
	orch := &bootstrap.Orchestrator{
		Registry:    driver.Default(),
		Renderer:    render.New(app.vars.Templates),
		Credentials: app.vars.Credentials(),
		Log:         app.log,
		Metrics:     m,
		Options: bootstrap.Options{
			ConnectTimeout: connectTimeout,
			OpTimeout:      opTimeout,
			ConnectRetries: connectRetries,
			RetryDelay:     bootstrap.DefaultOptions().RetryDelay,
			Policy:         policy,
		},
	}

	if app.vars.Journal != "" {
		journal, err := audit.NewFileLogger(app.vars.Journal, audit.RotationConfig{
			MaxSize:    journalMaxSize,
			MaxBackups: journalMaxBackups,
		}, app.log)
		if err != nil {
			app.log.Warnf("Could not open push journal: %v", err)
		} else {
			defer journal.Close()
			orch.Journal = journal
		}
	}

	report, runErr := orch.Run(cmd.Context(), routers)
	cli.PrintReport(cmd.OutOrStdout(), report)

	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			app.log.Warnf("Could not write metrics: %v", err)
		}
	}
	return runErr
}

func loadInventory() ([]*model.Router, error) {
	if configPath == "" {
		return nil, errors.New("--config is required")
	}
	return inventory.Load(configPath)
}

// askPassword is replaced in tests
var askPassword = func(vars *settings.Vars) error {
	return promptPassword(vars, os.Stdin)
}

// promptPassword asks for the device password on an interactive terminal
// when neither the vars file nor the environment supplied one.
func promptPassword(vars *settings.Vars, in *os.File) error {
	fd := int(in.Fd())
	if vars.Password != "" || !term.IsTerminal(fd) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", vars.Username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	vars.Password = string(pw)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("newtboot dev build")
		} else {
			fmt.Printf("newtboot %s\n", version.Info())
		}
	},
}

func isMetaCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "drivers", "show":
			return true
		}
	}
	return false
}
