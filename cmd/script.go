package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rdmcfg/rdm/config"
	"github.com/rdmcfg/rdm/script"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run init.lua from the config directory",
	Args:  cobra.NoArgs,
	RunE:  withSession(runScript(config.InitScript)),
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run bootstrap.lua from the config directory",
	Args:  cobra.NoArgs,
	RunE:  withSession(runScript(config.BootstrapScript)),
}

func init() {
	rootCmd.AddCommand(runCmd, bootstrapCmd)
}

func runScript(name string) func(*cobra.Command, []string, *session) error {
	return func(cmd *cobra.Command, _ []string, s *session) error {
		runner := script.New(s.engine, script.Env{
			Worktree: s.cfg.Ledger.WorktreePath,
			Revision: s.cfg.Ledger.Revision,
		}, s.log.Logger)
		return runner.Run(cmd.Context(), s.cfg.ScriptPath(name))
	}
}
