// cmd/fwreconcile/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bmcdonald3/fwreconcile/pkg/config"
	"github.com/bmcdonald3/fwreconcile/pkg/hosts"
	"github.com/bmcdonald3/fwreconcile/pkg/logger"
	"github.com/bmcdonald3/fwreconcile/pkg/reconcile"
	"github.com/bmcdonald3/fwreconcile/pkg/report"
	"github.com/bmcdonald3/fwreconcile/pkg/transport"
	"github.com/bmcdonald3/fwreconcile/pkg/transport/ssh"
)

const passwordEnv = "FWRECONCILE_PASSWORD"

var rootCmd = &cobra.Command{
	Use:          "fwreconcile",
	Short:        "Removes firmware images that no longer back the boot configuration of network devices.",
	SilenceUsage: true,
	RunE:         executeReconcile,
}

var (
	configPath string
	flags      config.Config
)

func init() {
	def := config.Defaults()
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	f.StringVarP(&flags.HostsFile, "hosts", "f", def.HostsFile, "File with one device address per line, or a CSV file")
	f.StringVar((*string)(&flags.HostsFormat), "hosts-format", string(def.HostsFormat), "Host file format: auto, lines or csv")
	f.StringVarP(&flags.Username, "username", "u", "", "Login name used for every device")
	f.IntVarP(&flags.Concurrency, "concurrency", "n", def.Concurrency, "Hosts processed in parallel, 0 for one per host")
	f.DurationVar(&flags.ConnectTimeout, "connect-timeout", def.ConnectTimeout, "Time allowed to open a session")
	f.BoolVar(&flags.DryRun, "dry-run", false, "Classify files but do not delete anything")
	f.StringVar(&flags.ReportJSON, "report-json", "", "Write a JSON report to this file")
	f.StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, notice, warn, error or off")
	f.StringVar(&flags.LogFile, "log-file", "", "Append a debug session log, commands and device output included, to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// executeReconcile runs one pass over the fleet. Host failures end up in the
// report; only setup errors are returned.
func executeReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.New()
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "open session log")
		}
		defer f.Close()
		log = log.WithDebugLog(f)
	}

	addrs, err := hosts.Load(cfg.HostsFile, cfg.HostsFormat, cfg.CSVColumn)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		log.Warningf("no hosts in %s", cfg.HostsFile)
	}

	creds, err := credentials(cfg.Username)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fleet := &reconcile.Fleet{
		Logger: log,
		Runner: &reconcile.Workflow{
			Logger:         log,
			Dialer:         ssh.NewDialer(cfg.SSH.Transport(), log),
			Credentials:    creds,
			Commands:       cfg.Commands.Workflow(),
			ConnectTimeout: cfg.ConnectTimeout,
			DryRun:         cfg.DryRun,
		},
		Concurrency:  cfg.Concurrency,
		StallWarning: cfg.StallWarning,
	}

	started := time.Now()
	outcomes := fleet.Run(ctx, addrs)
	run := report.New(outcomes, started, time.Now(), cfg.DryRun)

	if err := run.WriteText(cmd.OutOrStdout()); err != nil {
		log.Errorf("print report: %v", err)
	}
	if cfg.ReportJSON != "" {
		if err := run.WriteJSONFile(cfg.ReportJSON); err != nil {
			log.Errorf("%v", err)
		}
	}
	if cfg.MetricsFile != "" {
		m := report.NewMetrics()
		m.Observe(run, outcomes)
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Errorf("%v", err)
		}
	}
	return nil
}

// loadConfig reads the config file and applies the flags that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("hosts") {
		cfg.HostsFile = flags.HostsFile
	}
	if set("hosts-format") {
		cfg.HostsFormat = flags.HostsFormat
	}
	if set("username") {
		cfg.Username = flags.Username
	}
	if set("concurrency") {
		cfg.Concurrency = flags.Concurrency
	}
	if set("connect-timeout") {
		cfg.ConnectTimeout = flags.ConnectTimeout
	}
	if set("dry-run") {
		cfg.DryRun = flags.DryRun
	}
	if set("report-json") {
		cfg.ReportJSON = flags.ReportJSON
	}
	if set("metrics-file") {
		cfg.MetricsFile = flags.MetricsFile
	}
	if set("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if set("log-file") {
		cfg.LogFile = flags.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// credentials are read once and shared by every host.
func credentials(username string) (transport.Credentials, error) {
	if username == "" {
		return transport.Credentials{}, errors.New("username is required (--username or username in config)")
	}
	if pw, ok := os.LookupEnv(passwordEnv); ok {
		return transport.Credentials{Username: username, Password: pw}, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return transport.Credentials{}, errors.Errorf("%s is not set and stdin is not a terminal", passwordEnv)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return transport.Credentials{}, errors.Wrap(err, "read password")
	}
	return transport.Credentials{Username: username, Password: string(pw)}, nil
}
