// Package version carries the build metadata of a mainkit binary.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/mainkit/version.Version=1.0.0 \
//	    -X github.com/kbukum/mainkit/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Values left empty are filled from the module build info when the binary
// was built inside a VCS checkout.
package version
