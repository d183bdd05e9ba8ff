package cli

import (
	"github.com/spf13/cobra"
)

const mkdirShortDescription = `Create a directory`
const mkdirLongDescription = `Command "mkdir"

Create the directory, missing parent directories are created.
The directory expires after "--ttl" seconds, if specified.
`

func mkdirCommand(root *rootCommand) *cobra.Command {
	ttl := 0
	cmd := &cobra.Command{
		Use:   `mkdir <key>`,
		Short: mkdirShortDescription,
		Long:  mkdirLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			response, err := c.CreateDir(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), response)
		},
	}

	// Flags
	cmd.Flags().SortFlags = true
	cmd.Flags().IntVar(&ttl, "ttl", 0, "time to live in seconds, 0 means no expiration")
	return cmd
}
