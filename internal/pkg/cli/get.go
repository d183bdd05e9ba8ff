package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
	"github.com/keboola/etcd-keys-client/pkg/keys"
)

// maxParallelGets limits concurrent requests of one "get" command.
const maxParallelGets = 8

const getShortDescription = `Get keys or directory listings`
const getLongDescription = `Command "get"

Get value of each key, or the listing of a directory.
Multiple keys are loaded in parallel, responses are printed in the order of arguments.

Hidden keys, starting with "_", are not listed.
`

func getCommand(root *rootCommand) *cobra.Command {
	sorted := false
	recursive := false
	cmd := &cobra.Command{
		Use:   `get <key> [key...]`,
		Short: getShortDescription,
		Long:  getLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			var opts []keys.GetOption
			if sorted {
				opts = append(opts, keys.WithSorted())
			}
			if recursive {
				opts = append(opts, keys.WithRecursive())
			}

			// Load in parallel
			responses := make([]*keys.Response, len(args))
			grp, ctx := errgroup.WithContext(cmd.Context())
			grp.SetLimit(maxParallelGets)
			for i, key := range args {
				i, key := i, key
				grp.Go(func() error {
					response, err := c.Get(ctx, key, opts...)
					responses[i] = response
					return err
				})
			}
			if err := grp.Wait(); err != nil {
				return err
			}

			// Print in order, error envelopes are collected
			errs := errors.NewMultiError()
			for _, response := range responses {
				errs.Append(printResponse(cmd.OutOrStdout(), response))
			}
			return errs.ErrorOrNil()
		},
	}

	// Flags
	cmd.Flags().SortFlags = true
	cmd.Flags().BoolVarP(&sorted, "sorted", "s", false, "sort directory listing by key")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list all descendants")
	return cmd
}
