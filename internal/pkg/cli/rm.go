package cli

import (
	"github.com/spf13/cobra"
)

const rmShortDescription = `Remove a key`
const rmLongDescription = `Command "rm"

Remove the key. Use "rmdir" to remove a directory.
`

const rmdirShortDescription = `Remove a directory`
const rmdirLongDescription = `Command "rmdir"

Remove the directory.
A non-empty directory is removed only with the "--recursive" flag.
`

func rmCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   `rm <key>`,
		Short: rmShortDescription,
		Long:  rmLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			response, err := c.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), response)
		},
	}
	return cmd
}

func rmdirCommand(root *rootCommand) *cobra.Command {
	recursive := false
	cmd := &cobra.Command{
		Use:   `rmdir <key>`,
		Short: rmdirShortDescription,
		Long:  rmdirLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			response, err := c.DeleteDir(cmd.Context(), args[0], recursive)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), response)
		},
	}

	// Flags
	cmd.Flags().SortFlags = true
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove a non-empty directory")
	return cmd
}
