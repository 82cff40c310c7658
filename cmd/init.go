package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rdmcfg/rdm/engine"
	pexec "github.com/rdmcfg/rdm/exec"
)

var initOpts engine.InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the bare repository, the ledger and the initial commit",
	Long: `Creates a bare repository for your configuration, an empty rdm.lua and the
rdm.lock ledger, ignores the repository inside the worktree and records all of
them in an initial commit.

Examples:
  rdm init
  rdm init --repo ~/dotfiles.git --worktree ~`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initOpts.RepoPath, "repo", "", "Path of the bare repository (default $XDG_DATA_HOME/rdm/repo)")
	initCmd.Flags().StringVar(&initOpts.ConfigFile, "config", "", "Path of the rdm.lua config file (default <config-path>/rdm.lua)")
	initCmd.Flags().StringVar(&initOpts.Worktree, "worktree", "", "Directory whose files are tracked (default $HOME)")
	initCmd.Flags().StringVar(&initOpts.Branch, "branch", engine.DefaultBranch, "Name of the branch")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	opts := initOpts
	if opts.ConfigFile == "" && configPath != "" {
		opts.ConfigFile = filepath.Join(configPath, "rdm.lua")
	}

	_, err = engine.Init(cmd.Context(), opts, pexec.NewRealExecutor(), log.Logger)
	return err
}
