package options

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/keboola/etcd-keys-client/internal/pkg/env"
	"github.com/keboola/etcd-keys-client/internal/pkg/utils/errors"
)

const (
	DefaultTimeout = 30 * time.Second
	defaultScheme  = "http://"
)

// Options contains parsed flags and ENV variables.
type Options struct {
	Verbose          bool          `flag:"verbose"`      // verbose mode, print details to console
	VerboseHTTP      bool          `flag:"verbose-http"` // log each HTTP request and response
	LogFilePath      string        `flag:"log-file"`     // path to the log file
	Endpoint         string        `flag:"endpoint"`     // etcd endpoint, eg. "http://127.0.0.1:2379"
	Timeout          time.Duration `flag:"timeout"`      // timeout of a single request, watch is not limited
	WorkingDirectory string        `flag:"working-dir"`  // .env files are loaded from this dir
}

func NewOptions() *Options {
	return &Options{Timeout: DefaultTimeout}
}

// BindPersistentFlags for all commands.
func (o *Options) BindPersistentFlags(flags *pflag.FlagSet) {
	flags.SortFlags = true
	flags.BoolP("help", "h", false, "print help for command")
	flags.StringP("log-file", "l", "", "path to a log file for details")
	flags.StringP("working-dir", "d", "", "use other working directory")
	flags.StringP("endpoint", "e", "", `etcd endpoint, eg. "http://127.0.0.1:2379"`)
	flags.Duration("timeout", DefaultTimeout, "timeout of a single request, watch is not limited")
	flags.BoolP("verbose", "v", false, "print details")
	flags.Bool("verbose-http", false, "log each HTTP request and response")
}

// Load all sources of Options - flags, ENVs and ".env" files.
func (o *Options) Load(flags *pflag.FlagSet) (warnings []string, err error) {
	naming := env.NewNamingConvention(env.Prefix)
	parser := viper.NewWithOptions(viper.EnvKeyReplacer(naming))

	// Bind flags
	if err = parser.BindPFlags(flags); err != nil {
		return nil, err
	}

	// Bind ENV variables
	parser.AutomaticEnv()

	// Set working directory + load .env files if present
	o.WorkingDirectory, err = getWorkingDirectory(parser)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, loadDotEnv(o.WorkingDirectory)...)

	// For each Options struct field with "flag" tag -> load value from parser
	reflection := reflect.Indirect(reflect.ValueOf(o))
	types := reflection.Type()
	for i := 0; i < types.NumField(); i++ {
		flag := types.Field(i).Tag.Get("flag")
		if flag == "" || flag == "working-dir" || !parser.IsSet(flag) {
			continue
		}

		field := reflection.Field(i)
		switch {
		case field.Type() == reflect.TypeOf(time.Duration(0)):
			field.SetInt(int64(parser.GetDuration(flag)))
		case field.Kind() == reflect.Bool:
			field.SetBool(parser.GetBool(flag))
		case field.Kind() == reflect.String:
			field.SetString(parser.GetString(flag))
		default:
			panic(fmt.Errorf(`unexpected type "%s" of the field "%s"`, field.Type(), types.Field(i).Name))
		}
	}

	// Normalize the values into a uniform form
	o.normalize()

	return warnings, nil
}

// Validate required options - defined by field name.
func (o *Options) Validate(required []string) error {
	errs := errors.NewMultiError()
	naming := env.NewNamingConvention(env.Prefix)
	reflection := reflect.Indirect(reflect.ValueOf(o))
	types := reflection.Type()

	// Iterate over required fields
	for _, fieldName := range required {
		fieldType, exists := types.FieldByName(fieldName)
		if !exists {
			panic(fmt.Errorf(`field "%s" doesn't exist in Options struct`, fieldName))
		}

		if !reflection.FieldByName(fieldName).IsZero() {
			continue
		}

		humanReadable := strcase.ToDelimited(fieldName, ' ')
		if flag := fieldType.Tag.Get("flag"); len(flag) > 0 {
			errs.Append(errors.Errorf(`missing %s, please use "--%s" flag or ENV variable "%s"`, humanReadable, flag, naming.FlagToEnv(flag)))
		} else {
			errs.Append(errors.Errorf(`missing %s`, humanReadable))
		}
	}

	if o.Timeout < 0 {
		errs.Append(errors.Errorf(`timeout cannot be negative, found "%s"`, o.Timeout))
	}

	return errs.ErrorOrNil()
}

func (o *Options) normalize() {
	o.Endpoint = strings.TrimSpace(o.Endpoint)
	o.Endpoint = strings.TrimRight(o.Endpoint, "/")
	if o.Endpoint != "" && !strings.Contains(o.Endpoint, "://") {
		o.Endpoint = defaultScheme + o.Endpoint
	}
}

// Dump Options for debugging, hide password from the endpoint.
func (o *Options) Dump() string {
	re := regexp.MustCompile(`(://[^:@/"]+:)[^@/"]+@`)
	str := fmt.Sprintf("Parsed options: %#v", o)
	return re.ReplaceAllString(str, `$1*****@`)
}

// getWorkingDirectory from flag or by default from OS.
func getWorkingDirectory(parser *viper.Viper) (string, error) {
	value := parser.GetString("working-dir")
	if len(value) > 0 {
		return value, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "cannot get current working directory")
	}
	return dir, nil
}

// loadDotEnv loads ENVs from ".env" files if they exist. Existing ENVs take precedence.
func loadDotEnv(dir string) (warnings []string) {
	for _, file := range env.Files() {
		path := filepath.Join(dir, file)
		stat, err := os.Stat(path)
		switch {
		case err != nil && os.IsNotExist(err):
			continue
		case err != nil:
			warnings = append(warnings, fmt.Sprintf(`Cannot check if path "%s" exists: %s`, path, err))
			continue
		case stat.IsDir():
			warnings = append(warnings, fmt.Sprintf(`Expected file, but found dir at "%s"`, path))
			continue
		}

		if err := godotenv.Load(path); err != nil {
			warnings = append(warnings, fmt.Sprintf(`Cannot load env file "%s": %s`, path, err))
		}
	}
	return warnings
}
