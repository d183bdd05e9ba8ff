package env

import (
	"fmt"
	"strings"
)

const Prefix = "ETCDKEYS_"

type NamingConvention struct {
	prefix string
}

func NewNamingConvention(prefix string) *NamingConvention {
	return &NamingConvention{prefix: prefix}
}

// FlagToEnv converts flag name to ENV variable name
// for example "endpoint" -> "ETCDKEYS_ENDPOINT".
func (n *NamingConvention) FlagToEnv(flagName string) string {
	if len(flagName) == 0 {
		panic(fmt.Errorf("flag name cannot be empty"))
	}

	return n.prefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Replace implements viper.StringReplacer.
func (n *NamingConvention) Replace(flagName string) string {
	return n.FlagToEnv(flagName)
}

// Files are the ".env" files loaded from the working directory, the first one has the highest priority.
func Files() []string {
	// https://github.com/bkeepers/dotenv#what-other-env-files-can-i-use
	return []string{
		".env.local",
		".env",
	}
}
