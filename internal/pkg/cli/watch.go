package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
	"github.com/keboola/etcd-keys-client/pkg/keys"
)

const watchShortDescription = `Wait for a change of a key`
const watchLongDescription = `Command "watch"

Wait for the next change of the key and print it.
With "--recursive", changes of all descendants are reported.

With "--forever", the watch is created again after each change,
no change is missed between two watches.
Network failures are retried with an exponential backoff.
`

type watchFlags struct {
	recursive bool
	forever   bool
	limit     int
	waitIndex uint64
}

func watchCommand(root *rootCommand) *cobra.Command {
	f := watchFlags{}
	cmd := &cobra.Command{
		Use:   `watch <key>`,
		Short: watchShortDescription,
		Long:  watchLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.KeysClient()
			if err != nil {
				return err
			}

			w := &watcher{
				client:  c,
				key:     args[0],
				flags:   f,
				out:     cmd.OutOrStdout(),
				backoff: newWatchBackoff(),
				warnf:   root.logger.Warnf,
			}
			if f.forever {
				return w.forever(cmd.Context())
			}
			if _, err := w.once(cmd.Context(), f.waitIndex); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}

	// Flags
	cmd.Flags().SortFlags = true
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "watch all descendants")
	cmd.Flags().BoolVar(&f.forever, "forever", false, "watch until interrupted")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "stop after the number of changes, with --forever")
	cmd.Flags().Uint64Var(&f.waitIndex, "wait-index", 0, "report changes since the index")
	return cmd
}

type watcher struct {
	client  *keys.Client
	key     string
	flags   watchFlags
	out     io.Writer
	outLock sync.Mutex
	backoff backoff.BackOff
	warnf   func(template string, args ...any)
}

// once waits for one change, the response is printed by the watch callback.
func (w *watcher) once(ctx context.Context, waitIndex uint64) (*keys.Response, error) {
	var opts []keys.WatchOption
	if w.flags.recursive {
		opts = append(opts, keys.WithRecursiveWatch())
	}
	if waitIndex > 0 {
		opts = append(opts, keys.WithWaitIndex(waitIndex))
	}

	var printErr error
	response, err := w.client.Watch(ctx, w.key, func(response *keys.Response) {
		w.outLock.Lock()
		defer w.outLock.Unlock()
		printErr = printResponse(w.out, response)
	}, opts...).Wait()
	if err != nil {
		return nil, err
	}
	return response, printErr
}

// forever re-creates the watch after each change, from the next index.
func (w *watcher) forever(ctx context.Context) error {
	waitIndex := w.flags.waitIndex
	for count := 0; w.flags.limit <= 0 || count < w.flags.limit; {
		response, err := w.once(ctx, waitIndex)

		// Interrupted
		if ctx.Err() != nil {
			return nil
		}

		// Network failure, retry
		var transportErr *keys.TransportError
		var decodeErr *keys.DecodeError
		if errors.As(err, &transportErr) || errors.As(err, &decodeErr) {
			delay := w.backoff.NextBackOff()
			if delay == backoff.Stop {
				return err
			}
			w.warnf(`Watch failed, retrying in %s: %s`, delay, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
				continue
			}
		}
		w.backoff.Reset()

		switch {
		case response == nil:
			return err
		case keys.IsStoreErrorCode(err, keys.ErrCodeEventIndexCleared):
			// Events have been cleared from the history, continue from the current index
			w.warnf(`Some changes have been missed: %s`, err)
			waitIndex = response.EtcdIndex + 1
			if response.Index != nil {
				waitIndex = *response.Index + 1
			}
		case err != nil:
			return err
		default:
			waitIndex = response.Node.ModifiedIndex + 1
			count++
		}
	}
	return nil
}

func newWatchBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // never stop
	b.Reset()
	return b
}
