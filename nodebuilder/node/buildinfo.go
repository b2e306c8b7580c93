package node

import (
	"fmt"
	"runtime"
)

const emptyValue = "unknown"

// set with -ldflags "-X github.com/shredwatch/shredwatch-node/nodebuilder/node.semanticVersion=..."
var (
	buildTime       string
	lastCommit      string
	semanticVersion string
)

// BuildInfo stores all necessary information for the current build.
type BuildInfo struct {
	BuildTime       string `json:"build_time"`
	LastCommit      string `json:"last_commit"`
	SemanticVersion string `json:"semantic_version"`
	SystemVersion   string `json:"system_version"`
	GolangVersion   string `json:"golang_version"`
}

// GetBuildInfo returns information about the running binary.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		BuildTime:       orUnknown(buildTime),
		LastCommit:      lastCommit,
		SemanticVersion: semanticVersion,
		SystemVersion:   fmt.Sprintf("%s/%s", runtime.GOARCH, runtime.GOOS),
		GolangVersion:   runtime.Version(),
	}
}

// GetSemanticVersion returns the semantic version with a leading 'v'.
func (b *BuildInfo) GetSemanticVersion() string {
	if b.SemanticVersion == "" {
		return emptyValue
	}
	return "v" + b.SemanticVersion
}

// CommitShortSha returns the first 7 characters of the last commit.
func (b *BuildInfo) CommitShortSha() string {
	if len(b.LastCommit) < 7 {
		return orUnknown(b.LastCommit)
	}
	return b.LastCommit[:7]
}

func orUnknown(s string) string {
	if s == "" {
		return emptyValue
	}
	return s
}
