package cli

import (
	"github.com/spf13/cobra"
)

const setShortDescription = `Set value of a key`
const setLongDescription = `Command "set"

Set value of the key, missing parent directories are created.
The key expires after "--ttl" seconds, if specified.

Keys starting with "_" are hidden, they are not listed by "get".
`

func setCommand(root *rootCommand) *cobra.Command {
	ttl := 0
	cmd := &cobra.Command{
		Use:   `set <key> <value>`,
		Short: setShortDescription,
		Long:  setLongDescription,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			response, err := c.Set(cmd.Context(), args[0], args[1], ttl)
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
