// Package config holds the fwreconcile run configuration.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bmcdonald3/fwreconcile/pkg/hosts"
	"github.com/bmcdonald3/fwreconcile/pkg/reconcile"
	"github.com/bmcdonald3/fwreconcile/pkg/transport/ssh"
)

// Config is the top-level application configuration.
type Config struct {
	HostsFile   string       `yaml:"hosts_file"`
	HostsFormat hosts.Format `yaml:"hosts_format"`
	CSVColumn   string       `yaml:"csv_column"`
	Username    string       `yaml:"username"`

	Concurrency    int           `yaml:"concurrency"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	StallWarning   time.Duration `yaml:"stall_warning"`
	DryRun         bool          `yaml:"dry_run"`

	Commands CommandsConfig `yaml:"commands"`
	SSH      SSHConfig      `yaml:"ssh"`

	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	ReportJSON  string `yaml:"report_json"`
	MetricsFile string `yaml:"metrics_file"`
}

// CommandsConfig defines the device commands. See reconcile.Commands.
type CommandsConfig struct {
	Dir          string   `yaml:"dir"`
	Startup      string   `yaml:"startup"`
	Cleanup      string   `yaml:"cleanup"`
	Delete       string   `yaml:"delete"`
	ErrorMarkers []string `yaml:"error_markers"`
}

// Workflow returns the commands in the form the workflow runs them.
func (c CommandsConfig) Workflow() reconcile.Commands {
	return reconcile.Commands{
		Dir:          c.Dir,
		Startup:      c.Startup,
		Cleanup:      c.Cleanup,
		Delete:       c.Delete,
		ErrorMarkers: append([]string(nil), c.ErrorMarkers...),
	}
}

// SSHConfig defines the SSH transport settings. See ssh.Config.
type SSHConfig struct {
	Port           int           `yaml:"port"`
	KnownHostsFile string        `yaml:"known_hosts_file"`
	PagingOff      string        `yaml:"paging_off_command"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	TerminalWidth  int           `yaml:"terminal_width"`
}

// Transport returns the settings for ssh.NewDialer.
func (c SSHConfig) Transport() ssh.Config {
	return ssh.Config{
		Port:           c.Port,
		KnownHostsFile: c.KnownHostsFile,
		PagingOff:      c.PagingOff,
		CommandTimeout: c.CommandTimeout,
		TerminalWidth:  c.TerminalWidth,
	}
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	cmds := reconcile.DefaultCommands()
	sc := ssh.DefaultConfig()
	return &Config{
		HostsFile:      "ips.txt",
		HostsFormat:    hosts.FormatAuto,
		CSVColumn:      hosts.DefaultColumn,
		Concurrency:    16,
		ConnectTimeout: 15 * time.Second,
		StallWarning:   2 * time.Minute,
		Commands: CommandsConfig{
			Dir:          cmds.Dir,
			Startup:      cmds.Startup,
			Cleanup:      cmds.Cleanup,
			Delete:       cmds.Delete,
			ErrorMarkers: cmds.ErrorMarkers,
		},
		SSH: SSHConfig{
			Port:           sc.Port,
			KnownHostsFile: sc.KnownHostsFile,
			PagingOff:      sc.PagingOff,
			CommandTimeout: sc.CommandTimeout,
			TerminalWidth:  sc.TerminalWidth,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path yields the
// defaults; a path that cannot be read is an error, missing file included.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.HostsFile == "":
		return errors.New("hosts_file is required")
	case c.Concurrency < 0:
		return errors.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	case c.ConnectTimeout <= 0:
		return errors.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	case c.StallWarning < 0:
		return errors.Errorf("stall_warning must not be negative, got %s", c.StallWarning)
	case c.SSH.CommandTimeout < 0:
		return errors.Errorf("ssh.command_timeout must not be negative, got %s", c.SSH.CommandTimeout)
	}

	switch c.HostsFormat {
	case "", hosts.FormatAuto, hosts.FormatLines, hosts.FormatCSV:
	default:
		return errors.Errorf("unknown hosts_format %q", c.HostsFormat)
	}

	cmds := map[string]string{
		"commands.dir":     c.Commands.Dir,
		"commands.startup": c.Commands.Startup,
		"commands.delete":  c.Commands.Delete,
	}
	for name, v := range cmds {
		if strings.TrimSpace(v) == "" {
			return errors.Errorf("%s must not be empty", name)
		}
	}
	if !strings.Contains(c.Commands.Delete, reconcile.FilePlaceholder) {
		return errors.Errorf("commands.delete must contain %s", reconcile.FilePlaceholder)
	}
	return nil
}
