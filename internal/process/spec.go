package process

import (
	"os/exec"
	"strings"

	"github.com/loykin/castctl/internal/logger"
)

// WorkerSpec describes how to invoke the managed castd worker.
type WorkerSpec struct {
	Command string        // launch command (shell-aware)
	Dir     string        // working directory, normally the install dir
	Env     []string      // optional extra env, appended to the parent env
	Log     logger.Config // destinations for worker output
}

// BuildCommand constructs an *exec.Cmd for the worker with extra arguments
// appended. It avoids invoking a shell when not necessary, and it also
// respects an explicit shell invocation already present in the command string
// (e.g., "sh -c 'node index.js'"), avoiding double-wrapping with another
// shell.
func (s WorkerSpec) BuildCommand(extra ...string) *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		cmdStr = "castd"
	}
	// If the command already explicitly uses a shell, honor it without
	// adding another layer. Extra args are passed as positional parameters.
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		return shellCommand(afterC, extra)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return shellCommand(cmdStr, extra)
	}
	parts := strings.Fields(cmdStr)
	args := append(parts[1:], extra...)
	// #nosec G204 -- worker command comes from operator config
	return exec.Command(parts[0], args...)
}

func shellCommand(script string, extra []string) *exec.Cmd {
	if len(extra) == 0 {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", script)
	}
	argv := append([]string{"-c", script + ` "$@"`, "castd"}, extra...)
	// #nosec G204
	return exec.Command("/bin/sh", argv...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>"
// at the beginning of cmdStr. It returns (afterCArg, true) when matched,
// stripping one pair of surrounding quotes from the script if present.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
