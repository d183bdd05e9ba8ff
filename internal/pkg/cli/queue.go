package cli

import (
	"github.com/spf13/cobra"
)

const queueShortDescription = `Append a value to a directory`
const queueLongDescription = `Command "queue"

Create an in-order key in the directory.
The key is assigned by the server, keys are ordered by creation.
`

func queueCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   `queue <dir> <value>`,
		Short: queueShortDescription,
		Long:  queueLongDescription,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			response, err := c.Queue(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), response)
		},
	}
	return cmd
}
