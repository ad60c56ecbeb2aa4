package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nqs/internal/config"
	"nqs/internal/output"
	"nqs/internal/query"
	"nqs/internal/slogutil"
	"nqs/internal/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	netlistPath string
	topCell     string
	format      string
	verbose     int
	quiet       bool
}

// app carries state from the root command's pre-run into subcommands.
type app struct {
	flags globalFlags

	cfg       *config.Config
	format    output.Format
	logger    *slog.Logger
	logCloser io.Closer
	svc       *query.Service
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nqs",
		Short: "nqs - netlist query service",
		Long: `nqs loads a hierarchical SPICE netlist and answers questions about its nets:
which names are aliases of one another, which top-level nets a net deep in the
hierarchy is wired to, and which configuration lines touch the same physical net.`,
		Version:           version.Info(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}
	cmd.SetVersionTemplate("nqs version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default .nqs/config.toml)")
	pf.StringVar(&a.flags.netlistPath, "netlist", "", "Netlist file, optionally gzip-compressed (overrides netlist.path)")
	pf.StringVar(&a.flags.topCell, "top", "", "Top cell (overrides netlist.topCell; default is the last template)")
	pf.StringVar(&a.flags.format, "format", "human", "Output format (human, json, yaml)")
	pf.CountVarP(&a.flags.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "Suppress all log output")

	cmd.AddCommand(
		newTemplatesCmd(a),
		newNetsCmd(a),
		newResolveCmd(a),
		newCheckCmd(a),
		newCollapseCmd(a),
		newExpandCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.flags.netlistPath != "" {
		cfg.Netlist.Path = a.flags.netlistPath
	}
	if cmd.Flags().Changed("top") {
		cfg.Netlist.TopCell = a.flags.topCell
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := output.ParseFormat(a.flags.format)
	if err != nil {
		return err
	}

	var cliLevel *slog.Level
	if a.flags.verbose > 0 || a.flags.quiet {
		l := slogutil.LevelFromVerbosity(a.flags.verbose, a.flags.quiet)
		cliLevel = &l
	}
	logger, closer, err := slogutil.FromConfig(cmd.ErrOrStderr(), cfg.Logging, cliLevel)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	a.cfg = cfg
	a.format = format
	a.logger = logger
	a.logCloser = closer
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.flags.configPath != "" {
		return config.LoadFile(a.flags.configPath)
	}
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(root)
}

// service loads the configured netlist on first use.
func (a *app) service() (*query.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if a.cfg.Netlist.Path == "" {
		return nil, fmt.Errorf("no netlist given: pass --netlist or set netlist.path")
	}

	svc, err := query.Load(a.cfg.Netlist.Path, a.cfg.Netlist.TopCell, query.Options{
		Logger:          a.logger,
		MaxBusExpansion: a.cfg.Resolver.MaxBusExpansion,
		MaxVarsPerQuery: a.cfg.Storage.MaxVarsPerQuery,
	})
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// write renders v in the selected format; human renders the plain-text form.
func (a *app) write(cmd *cobra.Command, v interface{}, human func(io.Writer) error) error {
	return output.Write(cmd.OutOrStdout(), a.format, v, human)
}

func (a *app) close() {
	if a.svc != nil {
		if a.logger != nil {
			a.logger.Debug("Query cache stats", "stats", a.svc.Stats())
		}
		_ = a.svc.Close()
		a.svc = nil
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}
