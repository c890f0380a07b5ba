// Package buildinfo carries version stamps injected by the linker, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/expensebot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/expensebot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/expensebot/core/buildinfo.Date=$(date -u +%FT%TZ)" ./cmd/expensebot
package buildinfo

var (
	// Version is the release tag; "dev" for local builds.
	Version = "dev"
	// Commit is the short git hash.
	Commit = "local"
	// Date is the RFC 3339 build time, empty when unknown.
	Date = ""
)
