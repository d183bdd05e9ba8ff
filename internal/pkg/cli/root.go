// Package cli implements the "etcdkeys" command line tool.
package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keboola/etcd-keys-client/internal/pkg/build"
	"github.com/keboola/etcd-keys-client/internal/pkg/log"
	"github.com/keboola/etcd-keys-client/internal/pkg/options"
	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
	"github.com/keboola/etcd-keys-client/pkg/client"
	"github.com/keboola/etcd-keys-client/pkg/keys"
)

const description = `
etcd keys CLI

Read and modify keys of an etcd cluster
using the v2 keys API.

Set the endpoint by the "--endpoint" flag,
the ETCDKEYS_ENDPOINT variable or an ".env" file.
`

const usageTemplate = `Usage:{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{else if .Runnable}}
  {{.UseLine}}{{end}}{{if gt (len .Aliases) 0}}

Aliases:`

type rootCommand struct {
	cmd          *cobra.Command
	options      *options.Options   // parsed flags and env variables
	ctx          context.Context    // set by Execute
	keys         *keys.Client       // KeysClient should be used to initialize
	start        time.Time          // cmd start time
	initialized  bool               // init method was called
	logFile      *os.File           // log file instance
	logFileClear bool               // is log file temporary? if yes, it will be removed at the end, if no error occurs
	logger       *zap.SugaredLogger // log to console and logFile
}

// NewRootCommand creates parent of all sub-commands.
func NewRootCommand(stdin io.Reader, stdout io.Writer, stderr io.Writer) *rootCommand {
	root := &rootCommand{
		options: options.NewOptions(),
		ctx:     context.Background(),
		start:   time.Now(),
	}

	// Command definition
	root.cmd = &cobra.Command{
		Use:          path.Base(os.Args[0]), // name of the binary
		Version:      build.Version(),
		Short:        description,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Print help if no command specified
			return root.cmd.Help()
		},
	}

	// Setup in/out
	root.cmd.SetIn(stdin)
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)

	// Setup templates
	root.cmd.SetVersionTemplate("{{.Version}}")
	root.cmd.SetUsageTemplate(
		regexp.MustCompile(`Usage:(.|\n)*Aliases:`).ReplaceAllString(root.cmd.UsageTemplate(), usageTemplate),
	)

	// Persistent flags for all sub-commands
	root.options.BindPersistentFlags(root.cmd.PersistentFlags())

	// Root command flags
	root.cmd.Flags().SortFlags = true
	root.cmd.Flags().BoolP("version", "V", false, "print version")

	// Init when flags are parsed
	root.cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return root.init(cmd)
	}

	// Sub-commands
	root.cmd.AddCommand(
		setCommand(root),
		getCommand(root),
		mkdirCommand(root),
		rmCommand(root),
		rmdirCommand(root),
		queueCommand(root),
		watchCommand(root),
		versionCommand(root),
	)

	return root
}

// Execute command or sub-command.
func (root *rootCommand) Execute(ctx context.Context) (exitCode int) {
	root.ctx = ctx
	defer root.tearDown()
	if err := root.cmd.ExecuteContext(ctx); err != nil {
		// Init, it can be uninitialized, if error occurred before PersistentPreRun call
		_ = root.init(root.cmd)
		// Error is already logged, the temp log file is kept
		root.logFileClear = false
		return 1
	}
	return 0
}

func (root *rootCommand) GetCommandByName(name string) *cobra.Command {
	for _, cmd := range root.cmd.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

func (root *rootCommand) ValidateOptions(required []string) error {
	if err := root.options.Validate(required); err != nil {
		root.logger.Warn("Invalid parameters:\n", err)
		return errors.New("invalid parameters, see output above")
	}
	return nil
}

// KeysClient returns the keys API client and initializes it first time.
func (root *rootCommand) KeysClient() (*keys.Client, error) {
	if root.keys == nil {
		if err := root.ValidateOptions([]string{"Endpoint"}); err != nil {
			return nil, err
		}

		transport := client.New(
			root.logger.Named(log.ComponentHTTP),
			client.WithVerbose(root.options.VerboseHTTP),
			client.WithTimeout(root.options.Timeout),
		)
		c, err := keys.New(root.options.Endpoint, transport, keys.WithLogger(root.logger.Named(log.ComponentKeys)))
		if err != nil {
			return nil, err
		}
		root.keys = c
	}
	return root.keys, nil
}

// tearDown makes clean-up after command execution.
func (root *rootCommand) tearDown() {
	// Stop outstanding watches
	if root.keys != nil {
		root.keys.Close()
	}

	if err := recover(); err == nil {
		if root.logFile != nil {
			if err = root.logFile.Close(); err != nil {
				panic(fmt.Errorf("cannot close log file \"%s\": %s", root.options.LogFilePath, err))
			}
		}

		// No error -> remove log file if temporary
		if root.logFileClear {
			if err = os.Remove(root.options.LogFilePath); err != nil {
				panic(fmt.Errorf("cannot remove temp log file \"%s\": %s", root.options.LogFilePath, err))
			}
		}
	} else {
		// Panic -> log it and keep the log file
		if root.logger != nil {
			root.logger.Errorf("Unexpected panic: %s", err)
			if root.options.LogFilePath != "" {
				root.logger.Errorf("Details can be found in the log file \"%s\".", root.options.LogFilePath)
			}
		}
		if root.logFile != nil {
			_ = root.logFile.Close()
		}
		os.Exit(1)
	}
}

// init sets logger and options after flags are parsed.
func (root *rootCommand) init(cmd *cobra.Command) (err error) {
	if root.initialized {
		return
	}

	// Run only once
	root.initialized = true

	// Logger must always be set up, even if there is a panic somewhere
	defer func() {
		if root.logger == nil {
			root.setupLogger()
		}
	}()

	// Load values from flags and envs
	warnings, err := root.options.Load(cmd.Flags())
	if err != nil {
		return err
	}

	// Setup logger and log options load warnings
	root.setupLogger()
	root.logDebugInfo()
	for _, warning := range warnings {
		root.logger.Warn(warning)
	}

	return nil
}

// setupLogger according to the options.
func (root *rootCommand) setupLogger() {
	logFile, logFileErr := root.getLogFile()
	root.logger = log.NewLogger(log.Config{
		Stdout:      root.cmd.OutOrStdout(),
		Stderr:      root.cmd.ErrOrStderr(),
		File:        logFile,
		Verbose:     root.options.Verbose,
		VerboseHTTP: root.options.VerboseHTTP,
	})
	root.logFile = logFile
	root.cmd.SetOut(log.ToInfoWriter(root.logger))
	root.cmd.SetErr(log.ToWarnWriter(root.logger))

	// Warn if user specified log file and it cannot be opened
	if logFileErr != nil && !root.logFileClear {
		root.logger.Warnf("Cannot open log file: %s", logFileErr)
	}
}

func (root *rootCommand) logDebugInfo() {
	// Version
	log.ToDebugWriter(root.logger).WriteStringNoErr(root.cmd.Version)

	// Command
	root.logger.Debugf("Running command %v", os.Args)

	// Options
	root.logger.Debug(root.options.Dump())
}

// Get log file defined in the flags or create a temp file.
func (root *rootCommand) getLogFile() (logFile *os.File, logFileErr error) {
	if len(root.options.LogFilePath) > 0 {
		root.logFileClear = false // log file defined by user will be preserved
	} else {
		// Generate a unique hash if multiple instances start simultaneously
		randomHash := ``
		randomBytes := make([]byte, 6)
		if _, err := rand.Read(randomBytes); err == nil {
			randomHash = fmt.Sprintf(`-%x`, randomBytes)
		}

		root.options.LogFilePath = filepath.Join(os.TempDir(), fmt.Sprintf("etcdkeys-%d%s.txt", time.Now().Unix(), randomHash))
		root.logFileClear = true // temp log file will be removed. It will be preserved only in case of error
	}

	logFile, logFileErr = os.OpenFile(root.options.LogFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if logFileErr != nil {
		root.options.LogFilePath = ""
		root.logFileClear = false
		logFile = nil
	}
	return
}
