package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/etcd-keys-client/internal/pkg/log"
)

func newTestRootCommand() (*rootCommand, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	root := NewRootCommand(in, out, out)
	root.cmd.SetArgs([]string{})
	return root, out
}

func TestRootSubCommands(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	// Map commands to names
	var names []string
	for _, cmd := range root.cmd.Commands() {
		names = append(names, cmd.Name())
	}

	// Assert
	assert.Equal(t, []string{
		"get",
		"mkdir",
		"queue",
		"rm",
		"rmdir",
		"set",
		"version",
		"watch",
	}, names)
	assert.NotNil(t, root.GetCommandByName("watch"))
	assert.Nil(t, root.GetCommandByName("foo"))
}

func TestRootCmdPersistentFlags(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	// Map flags to names
	var names []string
	root.cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})

	// Assert
	expected := []string{
		"endpoint",
		"help",
		"log-file",
		"timeout",
		"verbose",
		"verbose-http",
		"working-dir",
	}
	assert.Equal(t, expected, names)
}

func TestRootCmdFlags(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	// Map flags to names
	var names []string
	root.cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		names = append(names, flag.Name)
	})

	// Assert
	expected := []string{
		"version",
	}
	assert.Equal(t, expected, names)
}

func TestExecute(t *testing.T) {
	t.Parallel()
	root, out := newTestRootCommand()
	root.cmd.SetArgs([]string{"--log-file", filepath.Join(t.TempDir(), "log.txt")})

	// Execute
	assert.Equal(t, 0, root.Execute(context.Background()))
	assert.Contains(t, out.String(), "Available Commands:")
}

func TestExecuteTempLogFile(t *testing.T) {
	t.Parallel()

	// Success -> temp log file is removed
	root, _ := newTestRootCommand()
	root.cmd.SetArgs([]string{"version"})
	assert.Equal(t, 0, root.Execute(context.Background()))
	require.NotEmpty(t, root.options.LogFilePath)
	assert.NoFileExists(t, root.options.LogFilePath)

	// Error -> temp log file is kept
	root, _ = newTestRootCommand()
	root.cmd.SetArgs([]string{"get"})
	assert.Equal(t, 1, root.Execute(context.Background()))
	require.NotEmpty(t, root.options.LogFilePath)
	assert.FileExists(t, root.options.LogFilePath)
	assert.NoError(t, os.Remove(root.options.LogFilePath))
}

func TestTearDownKeepLogFile(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	tempDir := t.TempDir()
	root.options.LogFilePath = filepath.Join(tempDir, "log-file.txt")
	root.logFile, _ = os.Create(root.options.LogFilePath)
	root.logFileClear = false // <<<<<
	root.tearDown()
	assert.FileExists(t, root.options.LogFilePath)
}

func TestTearDownRemoveLogFile(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	tempDir := t.TempDir()
	root.options.LogFilePath = filepath.Join(tempDir, "log-file.txt")
	root.logFile, _ = os.Create(root.options.LogFilePath)
	root.logFileClear = true // <<<<<
	root.tearDown()
	assert.NoFileExists(t, root.options.LogFilePath)
}

func TestInit(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()
	root.options.LogFilePath = filepath.Join(t.TempDir(), "log-file.txt")
	assert.False(t, root.initialized)
	assert.Nil(t, root.logger)
	err := root.init(root.cmd)
	assert.NoError(t, err)
	assert.True(t, root.initialized)
	assert.NotNil(t, root.logger)
}

func TestLogVersion(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()
	root.options.LogFilePath = filepath.Join(t.TempDir(), "log-file.txt")
	logger, out := log.NewDebugLogger()

	// Log version
	err := root.init(root.cmd)
	assert.NoError(t, err)
	root.logger = logger
	root.logDebugInfo()

	// Assert
	assert.Regexp(
		t,
		`^`+
			`DEBUG  Version:\s+dev\n`+
			`DEBUG  Git commit:.*\n`+
			`DEBUG  Build date:.*\n`+
			`DEBUG  Go version:\s+`+regexp.QuoteMeta(runtime.Version())+`\n`+
			`DEBUG  Os/Arch:\s+`+regexp.QuoteMeta(runtime.GOOS)+`/`+regexp.QuoteMeta(runtime.GOARCH)+`\n`+
			`DEBUG  Running command \[.+\]\n`+
			`DEBUG  Parsed options: .+\n`+
			`$`,
		out.String(),
	)
}

func TestGetLogFileTempFile(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()
	file, err := root.getLogFile()
	require.NoError(t, err)
	require.NotNil(t, file)
	defer func() {
		assert.NoError(t, file.Close())
		assert.NoError(t, os.Remove(root.options.LogFilePath))
	}()

	// Linux returns temp dir without last separator, MacOs with last separator.
	// ... so we need to make sure there is only one separator at the end.
	tempDir := strings.TrimRight(os.TempDir(), string(os.PathSeparator)) + string(os.PathSeparator)
	assert.True(t, strings.HasPrefix(root.options.LogFilePath, tempDir))
	assert.True(t, root.logFileClear)
}

func TestGetLogFileFromFlags(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	tempDir := t.TempDir()
	expected := filepath.Join(tempDir, "log-file.txt")
	root.options.LogFilePath = expected
	file, err := root.getLogFile()
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.NoError(t, file.Close())
	assert.Equal(t, expected, root.options.LogFilePath)
	assert.False(t, root.logFileClear)
}

func TestGetLogFileInvalidPath(t *testing.T) {
	t.Parallel()
	root, _ := newTestRootCommand()

	root.options.LogFilePath = filepath.Join(t.TempDir(), "missing", "log-file.txt")
	file, err := root.getLogFile()
	assert.Error(t, err)
	assert.Nil(t, file)
	assert.Empty(t, root.options.LogFilePath)
	assert.False(t, root.logFileClear)
}
