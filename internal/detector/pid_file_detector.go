//go:build !windows

package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidAlive returns true if a process with given pid exists (or EPERM).
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// PIDFileDetector resolves the worker through the handle file castd writes
// on startup: first line is the decimal PID, an optional second line carries
// JSON metadata with the worker's start time.
type PIDFileDetector struct {
	PIDFile string
}

type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

func (d PIDFileDetector) Probe() (int, error) {
	data, err := os.ReadFile(d.PIDFile)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrNotRunning, d.PIDFile, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid pid in %s", ErrNotRunning, d.PIDFile)
	}

	// Optional start-time token guards against PID reuse.
	if meta := parseMeta(lines); meta.StartUnix > 0 {
		cur := getProcStartUnix(pid)
		if cur > 0 && cur != meta.StartUnix {
			return 0, fmt.Errorf("%w: pid %d reused", ErrNotRunning, pid)
		}
	}

	if !pidAlive(pid) {
		return 0, fmt.Errorf("%w: pid %d", ErrNotRunning, pid)
	}
	return pid, nil
}

func parseMeta(lines []string) pidMeta {
	var m pidMeta
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := json.Unmarshal([]byte(line), &m); err == nil && m.StartUnix > 0 {
			return m
		}
	}
	return pidMeta{}
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }
