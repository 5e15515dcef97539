// Package utils holds small shared helpers and the build metadata injected
// at release time.
package utils

// Set via -ldflags -X by the release build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
