package process

import (
	"os"
	"strconv"
	"strings"
)

// ReadPIDFile reads the handle file the worker writes on startup.
// The first line is the decimal PID; any following lines (start-time
// metadata) are ignored here. castctl never writes this file.
func ReadPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidLine, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, err
	}
	return pid, nil
}
