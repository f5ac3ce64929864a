package sshfs

import (
	"context"
	"os/user"
	"testing"

	"github.com/bacalhau-project/remotefs/internal/testutil"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURIPrecedence(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	withOpts := sshutils.DefaultOptions()
	withOpts.User = "opt-user"
	withOpts.Port = 2200

	tests := []struct {
		name string
		uri  string
		opts sshutils.Options
		want address
	}{
		{
			name: "uri wins",
			uri:  "ssh://alice@example.com:2222/home/alice",
			opts: withOpts,
			want: address{user: "alice", host: "example.com", port: 2222, path: "/home/alice"},
		},
		{
			name: "options fill in",
			uri:  "ssh://example.com/srv",
			opts: withOpts,
			want: address{user: "opt-user", host: "example.com", port: 2200, path: "/srv"},
		},
		{
			name: "defaults",
			uri:  "ssh://example.com/",
			opts: sshutils.Options{},
			want: address{user: current.Username, host: "example.com", port: 22, path: "/"},
		},
		{
			name: "ipv6",
			uri:  "ssh://bob@[::1]:2022/tmp",
			opts: sshutils.Options{},
			want: address{user: "bob", host: "::1", port: 2022, path: "/tmp"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseURI(tt.uri, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURIRejectsBadInput(t *testing.T) {
	for _, uri := range []string{
		"http://example.com/x",
		"ssh:///x",
		"ssh://example.com:99999/x",
		"ssh://example.com:%zz/x",
	} {
		t.Run(uri, func(t *testing.T) {
			_, err := parseURI(uri, sshutils.DefaultOptions())
			assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)
		})
	}
}

func TestNewFileSystemRequiresAbsoluteDirectory(t *testing.T) {
	provider := NewProvider()
	env := map[string]any{"strict_host_key_checking": false, "password": "x"}

	for _, uri := range []string{"ssh:relative/dir", "ssh://tester@example.com", "ssh://tester@example.com:22"} {
		t.Run(uri, func(t *testing.T) {
			_, err := provider.NewFileSystem(context.Background(), uri, env)
			assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)
		})
	}
	_, err := provider.GetFileSystem("ssh://tester@example.com:22/")
	assert.ErrorIs(t, err, ErrFileSystemNotFound)
}

func TestNewFileSystemRejectsInvalidOptions(t *testing.T) {
	_, err := NewProvider().NewFileSystem(context.Background(), "ssh://tester@example.com/tmp",
		map[string]any{"sftp_policy": "sometimes"})
	assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)
}

func TestProviderRegistry(t *testing.T) {
	server := testutil.NewSSHServer(t, nil)
	provider := NewProvider()
	ctx := context.Background()

	fs, err := provider.NewFileSystem(ctx, server.URI("/home/tester"), server.Options())
	require.NoError(t, err)
	defer fs.Close()

	_, err = provider.NewFileSystem(ctx, server.URI("/other"), server.Options())
	assert.ErrorIs(t, err, ErrFileSystemExists)

	found, err := provider.GetFileSystem(server.URI("/anything"))
	require.NoError(t, err)
	assert.Same(t, fs, found)

	p, err := provider.GetPath(server.URI("/etc/hosts"))
	require.NoError(t, err)
	assert.Same(t, fs, p.FileSystem())
	assert.Equal(t, "/etc/hosts", p.String())

	require.NoError(t, fs.Close())
	_, err = provider.GetFileSystem(server.URI("/"))
	assert.ErrorIs(t, err, ErrFileSystemNotFound)

	again, err := provider.NewFileSystem(ctx, server.URI("/"), server.Options())
	require.NoError(t, err)
	assert.NotSame(t, fs, again)
	require.NoError(t, again.Close())
}

func TestNewFileSystemConnectFailureReleasesKey(t *testing.T) {
	server := testutil.NewSSHServer(t, nil)
	provider := NewProvider()
	env := server.Options()
	delete(env, "private_key")
	env["password"] = "wrong"

	_, err := provider.NewFileSystem(context.Background(), server.URI("/"), env)
	assert.ErrorIs(t, err, sshutils.ErrConnection)

	env["password"] = server.Password
	fs, err := provider.NewFileSystem(context.Background(), server.URI("/"), env)
	require.NoError(t, err)
	require.NoError(t, fs.Close())
}
