package cli

import (
	"github.com/spf13/cobra"

	"github.com/keboola/etcd-keys-client/internal/pkg/build"
	"github.com/keboola/etcd-keys-client/internal/pkg/log"
)

func versionCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   `version`,
		Short: `Print version`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			log.ToInfoWriter(root.logger).WriteStringNoErr(build.Version())
		},
	}
}
