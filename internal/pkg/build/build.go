package build

import "runtime"

// Defined on build time:

var (
	GitCommit    = "-"
	BuildVersion = "dev"
	BuildDate    = "-"
)

// Version for the "version" command.
func Version() string {
	return "Version:    " + BuildVersion + "\n" +
		"Git commit: " + GitCommit + "\n" +
		"Build date: " + BuildDate + "\n" +
		"Go version: " + runtime.Version() + "\n" +
		"Os/Arch:    " + runtime.GOOS + "/" + runtime.GOARCH + "\n"
}

// UserAgent sent with each HTTP request.
func UserAgent() string {
	return "etcd-keys-client/" + BuildVersion
}
