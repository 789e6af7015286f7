package checkpoint

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecGit runs git as a subprocess in a fixed working directory.
type ExecGit struct {
	// Dir is the repository directory. Empty means the process working
	// directory.
	Dir string
}

// Run executes `git <args...>` and returns its combined output.
// A non-zero exit wraps the output into the error so callers see what git
// complained about.
func (g *ExecGit) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
