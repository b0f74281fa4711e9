package tmux

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personamux/internal/domain"
)

type tmuxCall struct {
	args  []string
	input []byte
}

type fakeRunner struct {
	calls   []tmuxCall
	outputs [][]byte
	errs    []error
}

func (f *fakeRunner) Run(_ context.Context, args []string, input []byte) ([]byte, error) {
	f.calls = append(f.calls, tmuxCall{args: append([]string(nil), args...), input: append([]byte(nil), input...)})
	idx := len(f.calls) - 1

	var output []byte
	if idx < len(f.outputs) {
		output = f.outputs[idx]
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return output, err
}

func TestCreateOrSplitSurfaceCreatesNewSession(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		outputs: [][]byte{nil, []byte("%0\n")},
		errs:    []error{&exec.ExitError{}, nil},
	}
	client := NewClientWithRunner("personamux", runner)

	addr, err := client.CreateOrSplitSurface(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PaneAddress("%0"), addr)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"has-session", "-t", "personamux"}, runner.calls[0].args)
	assert.Equal(t, []string{"new-session", "-d", "-s", "personamux", "-P", "-F", "#{pane_id}"}, runner.calls[1].args)
}

func TestCreateOrSplitSurfaceSplitsExistingSession(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: [][]byte{nil, []byte("%7\n"), nil}}
	client := NewClientWithRunner("personamux", runner)

	addr, err := client.CreateOrSplitSurface(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PaneAddress("%7"), addr)

	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{"split-window", "-d", "-t", "personamux", "-P", "-F", "#{pane_id}"}, runner.calls[1].args)
	assert.Equal(t, []string{"select-layout", "-t", "personamux", "tiled"}, runner.calls[2].args)
}

func TestCreateOrSplitSurfaceEmptyPaneIDFails(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: [][]byte{nil, []byte("  \n")}}
	client := NewClientWithRunner("personamux", runner)

	_, err := client.CreateOrSplitSurface(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty pane id")
}

func TestSendTextAppendsEnterKey(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	client := NewClientWithRunner("personamux", runner)

	require.NoError(t, client.SendText(context.Background(), "%3", "hello there"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"send-keys", "-t", "%3", "hello there", "Enter"}, runner.calls[0].args)
}

func TestSetLabelTargetsPaneAddress(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	client := NewClientWithRunner("personamux", runner)

	require.NoError(t, client.SetLabel(context.Background(), "%2", "Project Manager"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"select-pane", "-t", "%2", "-T", "Project Manager"}, runner.calls[0].args)
}

func TestHasSessionTreatsExitErrorAsAbsent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{errs: []error{&exec.ExitError{}}}
	client := NewClientWithRunner("personamux", runner)

	exists, err := client.HasSession(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunSurfacesTmuxStderr(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		outputs: [][]byte{[]byte("no server running\n")},
		errs:    []error{errors.New("exit status 1")},
	}
	client := NewClientWithRunner("personamux", runner)

	err := client.KillSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server running")
}
