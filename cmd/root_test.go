package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bacalhau-project/remotefs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fakeDigest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func shell(_ context.Context, cmd string, _ io.Reader, stdout, stderr io.Writer) int {
	switch {
	case strings.HasPrefix(cmd, "echo "):
		fmt.Fprintln(stdout, strings.TrimPrefix(cmd, "echo "))
		return 0
	case strings.HasPrefix(cmd, "exit "):
		code, _ := strconv.Atoi(strings.TrimPrefix(cmd, "exit "))
		fmt.Fprintln(stderr, "failing on purpose")
		return code
	case strings.HasPrefix(cmd, "sha256sum -- "):
		fmt.Fprintf(stdout, "%s  %s\n", fakeDigest, strings.TrimPrefix(cmd, "sha256sum -- "))
		return 0
	case strings.HasPrefix(cmd, "rm -rf -- "):
		return 0
	default:
		return 127
	}
}

type cli struct {
	t      *testing.T
	server *testutil.SSHServer
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	server := testutil.NewSSHServer(t, shell)

	data, err := yaml.Marshal(server.Options())
	require.NoError(t, err)
	config := filepath.Join(t.TempDir(), "remotefs.yaml")
	require.NoError(t, os.WriteFile(config, data, 0o600))

	return &cli{t: t, server: server, config: config}
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (c *cli) uri(path string) string {
	return c.server.URI(path)
}

func TestFileCommands(t *testing.T) {
	c := newCLI(t)

	local := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello over ssh\n"), 0o644))

	_, _, err := c.run("mkdir", "-P", c.uri("/home/tester/docs"))
	require.NoError(t, err)

	_, _, err = c.run("put", "--mode", "0600", local, c.uri("/home/tester/docs/hello.txt"))
	require.NoError(t, err)

	out, _, err := c.run("cat", c.uri("/home/tester/docs/hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello over ssh\n", out)

	out, _, err = c.run("ls", c.uri("/home/tester/docs"))
	require.NoError(t, err)
	assert.Equal(t, "hello.txt\n", out)

	out, _, err = c.run("ls", "-L", c.uri("/home/tester/docs"))
	require.NoError(t, err)
	assert.Contains(t, out, "MODE")
	assert.Contains(t, out, "hello.txt")

	out, _, err = c.run("ls", "-R", c.uri("/home/tester"))
	require.NoError(t, err)
	assert.Contains(t, out, "/home/tester/docs/hello.txt")

	out, _, err = c.run("stat", "-o", "yaml", c.uri("/home/tester/docs/hello.txt"))
	require.NoError(t, err)
	var view statView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "hello.txt", view.Name)
	assert.Equal(t, int64(len("hello over ssh\n")), view.Size)
	assert.False(t, view.IsDir)

	out, _, err = c.run("stat", c.uri("/home/tester/docs"))
	require.NoError(t, err)
	assert.Contains(t, out, "Path: /home/tester/docs")

	_, _, err = c.run("mv", c.uri("/home/tester/docs/hello.txt"), "renamed.txt")
	require.NoError(t, err)

	downloaded := filepath.Join(t.TempDir(), "renamed.txt")
	_, _, err = c.run("get", c.uri("/home/tester/docs/renamed.txt"), downloaded)
	require.NoError(t, err)
	data, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, "hello over ssh\n", string(data))

	out, _, err = c.run("sum", c.uri("/home/tester/docs/renamed.txt"))
	require.NoError(t, err)
	assert.Equal(t, fakeDigest+"  /home/tester/docs/renamed.txt\n", out)

	_, _, err = c.run("rm", c.uri("/home/tester/docs/renamed.txt"))
	require.NoError(t, err)
	_, _, err = c.run("cat", c.uri("/home/tester/docs/renamed.txt"))
	assert.Error(t, err)

	_, _, err = c.run("rm", "-r", c.uri("/home/tester/docs"))
	require.NoError(t, err)
}

func TestMvToURIOnSameHost(t *testing.T) {
	c := newCLI(t)
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("a"), 0o644))

	_, _, err := c.run("put", local, c.uri("/a.txt"))
	require.NoError(t, err)
	_, _, err = c.run("mv", c.uri("/a.txt"), c.uri("/b.txt"))
	require.NoError(t, err)

	out, _, err := c.run("cat", c.uri("/b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}

func TestLnAndLongListing(t *testing.T) {
	c := newCLI(t)
	local := filepath.Join(t.TempDir(), "v2.txt")
	require.NoError(t, os.WriteFile(local, []byte("release two"), 0o644))

	_, _, err := c.run("mkdir", "-P", c.uri("/srv/releases"))
	require.NoError(t, err)
	_, _, err = c.run("put", local, c.uri("/srv/releases/v2.txt"))
	require.NoError(t, err)
	_, _, err = c.run("ln", "/srv/releases/v2.txt", c.uri("/srv/current"))
	require.NoError(t, err)

	out, _, err := c.run("ls", "-L", c.uri("/srv"))
	require.NoError(t, err)
	assert.Contains(t, out, "current -> /srv/releases/v2.txt")
	assert.Contains(t, out, "releases/")

	out, _, err = c.run("cat", c.uri("/srv/current"))
	require.NoError(t, err)
	assert.Equal(t, "release two", out)
}

func TestFileCommandErrors(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("ls", "/home/tester")
	assert.ErrorContains(t, err, "not an ssh:// address")

	_, _, err = c.run("stat", "-o", "json", c.uri("/"))
	assert.ErrorContains(t, err, "unknown output format")

	_, _, err = c.run("put", "--mode", "999", filepath.Join(t.TempDir(), "missing"), c.uri("/x"))
	assert.Error(t, err)

	_, _, err = c.run("cat", c.uri("relative"))
	assert.Error(t, err)
}

func TestExecSingleHost(t *testing.T) {
	c := newCLI(t)

	out, stderr, err := c.run("exec", "127.0.0.1", "-c", "echo hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
	assert.Empty(t, stderr)

	_, stderr, err = c.run("exec", "127.0.0.1", "-c", "exit 3")
	var exitErr *ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, stderr, "failing on purpose")
}

func TestExecSummary(t *testing.T) {
	c := newCLI(t)
	hostSpec := fmt.Sprintf("tester@%s", c.server.Addr)

	out, _, err := c.run("exec", "127.0.0.1", hostSpec, "-c", "echo one", "-c", "echo two", "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "tester@127.0.0.1:"+strconv.Itoa(c.server.Port)+" [1]")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")

	out, _, err = c.run("exec", "127.0.0.1", "tester@host:notaport", "-c", "echo x")
	require.Error(t, err)
	assert.Contains(t, out, "127.0.0.1")
	assert.Contains(t, err.Error(), "tester@host:notaport")

	_, _, err = c.run("exec", "127.0.0.1")
	assert.ErrorContains(t, err, "--command")

	_, _, err = c.run("exec", "127.0.0.1", "-c", "echo x", "--parallel", "0")
	assert.ErrorContains(t, err, "--parallel")
}

func TestCompletion(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "remotefs")

	_, _, err = c.run("completion", "tcsh")
	assert.Error(t, err)
}
