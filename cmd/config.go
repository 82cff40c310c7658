package cmd

import (
	"github.com/spf13/cobra"
)

var statusUntracked bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Stage, save and synchronize your configuration",
}

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Stage new or changed files",
	Args:  cobra.MinimumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		for _, path := range args {
			if _, err := s.engine.Add(cmd.Context(), path); err != nil {
				return err
			}
		}
		return nil
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update [path]...",
	Short: "Stage modifications and deletions of tracked files",
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		_, err := s.engine.Update(cmd.Context(), args...)
		return err
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show changes since the last saved revision",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		entries, err := s.engine.Status(cmd.Context(), path, statusUntracked)
		if err != nil {
			return err
		}
		s.printer.Status(entries, statusUntracked)
		return nil
	}),
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Record the staged changes as a new revision",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		result, err := s.engine.Save(cmd.Context())
		if err != nil {
			return err
		}
		s.printer.Saved(result.Changes)
		return nil
	}),
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the current branch to its default remote",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		_, err := s.engine.Push(cmd.Context())
		return err
	}),
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the default remote and merge it into the current branch",
	Long: `Fetches the current branch from its default remote and fast-forwards or merges
it. When the merge conflicts, the conflicting files are written with conflict
markers and listed; fix them, then run "rdm config update" and
"rdm config save".`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		result, err := s.engine.Pull(cmd.Context())
		if err != nil {
			return err
		}
		if result.Conflicted() {
			s.printer.Conflicts(result.Conflicts)
		}
		return nil
	}),
}

func init() {
	statusCmd.Flags().BoolVarP(&statusUntracked, "untracked", "u", false, "Also list untracked files")

	configCmd.AddCommand(addCmd, updateCmd, statusCmd, saveCmd, pushCmd, pullCmd)
	rootCmd.AddCommand(configCmd)
}
