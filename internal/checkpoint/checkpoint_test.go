package checkpoint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsforge/registerminer/internal/logger"
)

// fakeGit records invocations and serves canned responses.
type fakeGit struct {
	calls     [][]string
	statusOut string
	failOn    string
	failErr   error
}

func (g *fakeGit) Run(_ context.Context, args ...string) (string, error) {
	g.calls = append(g.calls, args)
	if g.failOn != "" && args[0] == g.failOn {
		return "", g.failErr
	}
	if args[0] == "status" {
		return g.statusOut, nil
	}
	return "", nil
}

func (g *fakeGit) commands() []string {
	var cmds []string
	for _, call := range g.calls {
		cmds = append(cmds, call[0])
	}
	return cmds
}

func TestCommitWithChanges(t *testing.T) {
	git := &fakeGit{statusOut: " M docs/index.html\n?? output/federal_register_2021.txt\n"}
	cp := New(logger.NewNop(), git)

	require.NoError(t, cp.Commit(context.Background(), "Mining run test"))
	assert.Equal(t, []string{"add", "status", "commit", "push"}, git.commands())

	// Commit message passed through untouched.
	assert.Equal(t, []string{"commit", "-m", "Mining run test"}, git.calls[2])
}

func TestCommitNoChangesIsNoOp(t *testing.T) {
	git := &fakeGit{statusOut: "  \n"}
	cp := New(logger.NewNop(), git)

	require.NoError(t, cp.Commit(context.Background(), "Mining run test"))
	assert.Equal(t, []string{"add", "status"}, git.commands(),
		"clean tree must not commit or push")
}

func TestCommitPushFailurePropagates(t *testing.T) {
	pushErr := errors.New("remote rejected")
	git := &fakeGit{statusOut: "M file\n", failOn: "push", failErr: pushErr}
	cp := New(logger.NewNop(), git)

	err := cp.Commit(context.Background(), "Mining run test")
	require.Error(t, err)
	assert.ErrorIs(t, err, pushErr)
	assert.True(t, strings.Contains(err.Error(), "git push"))
}

func TestCommitAddFailureStopsEarly(t *testing.T) {
	git := &fakeGit{failOn: "add", failErr: errors.New("index locked")}
	cp := New(logger.NewNop(), git)

	err := cp.Commit(context.Background(), "Mining run test")
	require.Error(t, err)
	assert.Equal(t, []string{"add"}, git.commands())
}
