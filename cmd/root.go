package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rdmcfg/rdm/cli"
	"github.com/rdmcfg/rdm/config"
	"github.com/rdmcfg/rdm/engine"
	"github.com/rdmcfg/rdm/git"
	"github.com/rdmcfg/rdm/logger"
	"github.com/rdmcfg/rdm/report"
)

var (
	configPath            string
	debugMode             bool
	quietMode             bool
	checkPrereqs          bool
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "rdm",
	Short: "Keep your dotfiles in a bare git repository and sync them across machines",
	Long: `rdm tracks configuration files living in your home directory with a bare git
repository stored elsewhere. Files are staged with "rdm config add", recorded as
numbered revisions with "rdm config save" and synchronized with
"rdm config push" and "rdm config pull".`,
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Assigned here rather than in the literal: checkRequired refers to rootCmd.
	rootCmd.PersistentPreRunE = checkRequired
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Directory holding rdm.lock and the lua scripts (default $XDG_CONFIG_HOME/rdm)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the console and the log file")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Only print warnings and errors")
	rootCmd.Flags().BoolVar(&checkPrereqs, "check-prereqs", false, "Check CLI prerequisites and exit")
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("rdm %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("rdm %s\n", version)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if checkPrereqs {
		results := cli.CheckAll(cli.DefaultPrerequisites())
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatCheckResults(results))
		return nil
	}
	return cmd.Help()
}

func checkRequired(cmd *cobra.Command, _ []string) error {
	if cmd == rootCmd {
		return nil
	}
	if err := cli.ValidateRequired(cli.DefaultPrerequisites()); err != nil {
		return fmt.Errorf("%v\n\nRun 'rdm --check-prereqs' to see all prerequisites", err)
	}
	return nil
}

func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	return logger.New(logger.Options{
		Debug:   debugMode,
		Quiet:   quietMode,
		Console: cmd.OutOrStdout(),
	})
}

// session is everything a command needs once the ledger is loaded.
type session struct {
	log     *logger.Logger
	cfg     *config.Config
	engine  *engine.Engine
	printer *report.Printer
}

func openSession(cmd *cobra.Command) (*session, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{Dir: configPath, Log: log.Logger})
	if err != nil {
		log.Close()
		return nil, err
	}
	log.Debug("session loaded", "session", cfg.String())

	printer := report.New(cmd.OutOrStdout())
	e := engine.New(cfg.Repo, cfg.Ledger, git.NewAgentCredentials(log.Logger), log.Logger)
	e.OnProgress = printer.Progress()

	return &session{log: log, cfg: cfg, engine: e, printer: printer}, nil
}

func (s *session) Close() {
	s.log.Close()
}

// withSession runs fn against a freshly opened session.
func withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}
