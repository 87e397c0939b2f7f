package version

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
)

type Info struct {
	Module      string
	GoVersion   string
	CommitHash  string
	CommitTime  string
	DirtyCommit bool
	BinaryHash  string
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// VersionString identifies the build: the commit when clean, and the binary
// hash when there is no commit or the tree was dirty.
func (v Info) VersionString() string {
	var rv string
	if v.CommitHash != "" {
		rv = shorten(v.CommitHash, 16)
		if v.DirtyCommit {
			rv += "-dirty"
		}
	}

	if (rv == "" || v.DirtyCommit) && v.BinaryHash != "" {
		if rv != "" {
			rv += "@"
		}
		rv += "sha256:" + shorten(v.BinaryHash, 8)
	}

	if rv == "" {
		rv = "unknown"
	}

	return rv
}

var (
	globalVersion    *Info
	globalVersionErr error
	globalOnce       sync.Once

	ForceHash bool = false
)

func GetInfo() (*Info, error) {
	globalOnce.Do(func() {
		globalVersion, globalVersionErr = computeVersionInfo(ForceHash)
	})
	return globalVersion, globalVersionErr
}

func infoFromBuildInfo(info *debug.BuildInfo) Info {
	rv := Info{
		Module:    info.Main.Path,
		GoVersion: info.GoVersion,
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rv.CommitHash = setting.Value
		case "vcs.modified":
			rv.DirtyCommit = setting.Value == "true"
		case "vcs.time":
			rv.CommitTime = setting.Value
		}
	}

	return rv
}

func hashExecutable() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}

	file, err := os.Open(execPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func computeVersionInfo(forceHash bool) (*Info, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed to read build info")
	}

	rv := infoFromBuildInfo(info)

	if rv.CommitHash == "" || rv.DirtyCommit || forceHash {
		digest, err := hashExecutable()
		if err != nil {
			return nil, err
		}
		rv.BinaryHash = digest
	}

	return &rv, nil
}
