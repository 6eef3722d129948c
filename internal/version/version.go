// Package version carries build identification, overridden at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0"
package version

var (
	// Version is the release tag or "dev" for local builds.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
