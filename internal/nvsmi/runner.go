package nvsmi

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"
)

// Runner executes the telemetry tool and returns whatever it printed.
type Runner interface {
	Run(ctx context.Context, args ...string) string
}

// CommandRunner invokes nvidia-smi as a child process with an explicit
// argument vector (no shell involved).
type CommandRunner struct {
	Binary string

	resolveOnce sync.Once
	resolved    string
	resolveErr  error
}

func NewRunner(binary string) *CommandRunner {
	if strings.TrimSpace(binary) == "" {
		binary = "nvidia-smi"
	}
	return &CommandRunner{Binary: binary}
}

// Run captures stdout and stderr merged into one stream. A non-zero exit
// still yields the captured output (nvidia-smi prints diagnostics there);
// a missing binary yields an empty string, so "tool absent" and "tool
// printed nothing" look the same to the readers.
func (r *CommandRunner) Run(ctx context.Context, args ...string) string {
	path, err := r.resolve()
	if err != nil {
		return ""
	}
	cmd := exec.CommandContext(ctx, path, args...)
	out, _ := cmd.CombinedOutput()
	return strings.ToValidUTF8(string(out), string(utf8.RuneError))
}

// Available reports whether the tool can be found at all.
func (r *CommandRunner) Available() bool {
	_, err := r.resolve()
	return err == nil
}

// resolve locates the binary once and caches the result, so Run execs the
// same path Available checked, including the Windows driver install
// locations that are not on PATH.
func (r *CommandRunner) resolve() (string, error) {
	r.resolveOnce.Do(func() {
		if strings.ContainsRune(r.Binary, os.PathSeparator) {
			if _, err := os.Stat(r.Binary); err != nil {
				r.resolveErr = err
				return
			}
			r.resolved = r.Binary
			return
		}
		r.resolved, r.resolveErr = lookupBinary(r.Binary)
	})
	return r.resolved, r.resolveErr
}

func lookupBinary(name string) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	if runtime.GOOS == "windows" {
		candidates := []string{
			os.ExpandEnv(`%ProgramFiles%\NVIDIA Corporation\NVSMI\nvidia-smi.exe`),
			os.ExpandEnv(`%ProgramFiles(x86)%\NVIDIA Corporation\NVSMI\nvidia-smi.exe`),
		}
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
	}
	return "", exec.ErrNotFound
}
