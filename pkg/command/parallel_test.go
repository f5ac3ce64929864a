package command

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bacalhau-project/remotefs/internal/testutil"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunParallelKeepsInputOrder(t *testing.T) {
	server := testutil.NewSSHServer(t, fakeShell)
	runner := newTestRunner(t, server, time.Second)

	commands := make([]string, 6)
	for i := range commands {
		commands[i] = fmt.Sprintf("echo %d", i)
	}

	results, err := RunParallel(context.Background(), runner, commands, 2)
	require.NoError(t, err)
	require.Len(t, results, len(commands))
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("%d\n", i), res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	}

	// one connection for the runner, one per duplicate
	assert.Equal(t, 3, server.Connections())

	res, err := runner.Execute(context.Background(), "echo original")
	require.NoError(t, err)
	assert.Equal(t, "original\n", res.Stdout)
}

func TestRunParallelEmpty(t *testing.T) {
	results, err := RunParallel(context.Background(), nil, nil, 4)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunParallelDuplicateFailure(t *testing.T) {
	client := &sshutils.MockSSHClient{}
	client.On("Close").Return(nil)
	config := &sshutils.MockSSHConfig{}
	config.On("Connect", mock.Anything).Return(client, nil).Once()
	config.On("Connect", mock.Anything).Return(nil, errors.New("connection refused"))
	config.On("String").Return("tester@mock:22")

	runner, err := NewCommandRunner(context.Background(), config, time.Second)
	require.NoError(t, err)
	defer runner.Close()

	_, err = RunParallel(context.Background(), runner, []string{"true", "true"}, 2)
	assert.ErrorIs(t, err, sshutils.ErrConnection)
}
