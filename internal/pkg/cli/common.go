package cli

import (
	"encoding/json"
	"io"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
	"github.com/keboola/etcd-keys-client/pkg/keys"
)

// printResponse writes the envelope as indented JSON.
// The error envelope is printed too and then returned as an error.
func printResponse(out io.Writer, response *keys.Response) error {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode response")
	}
	if _, err := out.Write(append(data, '\n')); err != nil {
		return err
	}
	return response.Err()
}
