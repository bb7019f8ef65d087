// Package buildinfo carries version data injected at link time:
//
//	go build -ldflags "-X github.com/and161185/health-dashboard/internal/buildinfo.BuildVersion=v1.0.0"
package buildinfo

import "go.uber.org/zap"

var (
	BuildVersion string
	BuildDate    string
	BuildCommit  string
)

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Log writes the build data through logger.
func Log(logger *zap.SugaredLogger, binary string) {
	logger.Infow("build info",
		"binary", binary,
		"version", orNA(BuildVersion),
		"date", orNA(BuildDate),
		"commit", orNA(BuildCommit),
	)
}
