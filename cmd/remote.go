package cmd

import (
	"github.com/spf13/cobra"
)

var remoteDefault bool

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage the remotes your configuration is synchronized with",
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Register a remote",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		return s.engine.AddRemote(cmd.Context(), args[0], args[1], remoteDefault)
	}),
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a remote",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		return s.engine.RemoveRemote(cmd.Context(), args[0])
	}),
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the remotes",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		remotes, err := s.engine.Remotes(cmd.Context())
		if err != nil {
			return err
		}
		s.printer.Remotes(remotes)
		return nil
	}),
}

var remoteDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Make a remote the one push and pull use",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		return s.engine.SetDefaultRemote(cmd.Context(), args[0])
	}),
}

func init() {
	remoteAddCmd.Flags().BoolVarP(&remoteDefault, "default", "d", false, "Also make it the default remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteDefaultCmd)
	configCmd.AddCommand(remoteCmd)
}
