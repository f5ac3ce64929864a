package sshfs

import (
	"testing"

	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineFileSystem(defaultDir string) *FileSystem {
	addr := address{user: "tester", host: "example.com", port: 22, path: defaultDir}
	return newFileSystem(NewProvider(), addr.key(), addr, nil, nil)
}

func TestGetPathJoinsSegments(t *testing.T) {
	fs := offlineFileSystem("/home/tester")

	assert.True(t, fs.GetPath("a", "b", "c").Equal(fs.GetPath("a/b/c")))
	assert.True(t, fs.GetPath("/a", "b/", "c").Equal(fs.GetPath("/a/b/c")))
	assert.Equal(t, "a/b/c", fs.GetPath("a", "b", "c").String())
	assert.Equal(t, "/x/y", fs.GetPath("//x///y/").String())
	assert.Equal(t, "", fs.GetPath("").String())
}

func TestPathComponents(t *testing.T) {
	fs := offlineFileSystem("/home/tester")
	p := fs.GetPath("/usr/local/bin")

	assert.True(t, p.IsAbsolute())
	assert.Equal(t, 3, p.NameCount())
	assert.Equal(t, "/", p.Root().String())
	assert.Equal(t, "bin", p.FileName().String())
	assert.False(t, p.FileName().IsAbsolute())
	assert.Equal(t, "/usr/local", p.Parent().String())
	assert.Equal(t, "/", p.Parent().Parent().Parent().String())
	assert.Nil(t, p.Parent().Parent().Parent().Parent())

	name, err := p.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "local", name.String())
	_, err = p.Name(3)
	assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)

	sub, err := p.Subpath(1, 3)
	require.NoError(t, err)
	assert.Equal(t, "local/bin", sub.String())
	_, err = p.Subpath(2, 2)
	assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)

	rel := fs.GetPath("docs")
	assert.Nil(t, rel.Root())
	assert.Nil(t, rel.Parent())
	assert.Nil(t, fs.GetPath("/").FileName())
	assert.Same(t, fs, p.FileSystem())
}

func TestPathNormalize(t *testing.T) {
	fs := offlineFileSystem("/home/tester")
	tests := []struct {
		in   string
		want string
	}{
		{"/a/./b/../c", "/a/c"},
		{"/../a", "/a"},
		{"a/../../b", "../b"},
		{"./a/b/..", "a"},
		{"../..", "../.."},
		{"/", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, fs.GetPath(tt.in).Normalize().String())
		})
	}
}

func TestPathResolve(t *testing.T) {
	fs := offlineFileSystem("/home/tester")
	base := fs.GetPath("/var/log")

	assert.Equal(t, "/var/log/app/out.log", base.Resolve("app/out.log").String())
	assert.Equal(t, "/etc/hosts", base.Resolve("/etc/hosts").String())
	assert.Same(t, base, base.Resolve(""))
	assert.Equal(t, "/var/tmp", base.ResolveSibling("tmp").String())
	assert.Equal(t, "x", fs.GetPath("a").ResolveSibling("x").String())
}

func TestPathRelativize(t *testing.T) {
	fs := offlineFileSystem("/home/tester")

	rel, err := fs.GetPath("/a/b").Relativize(fs.GetPath("/a/c/d"))
	require.NoError(t, err)
	assert.Equal(t, "../c/d", rel.String())
	assert.True(t, fs.GetPath("/a/b").Resolve(rel.String()).Normalize().Equal(fs.GetPath("/a/c/d")))

	_, err = fs.GetPath("/a").Relativize(fs.GetPath("b"))
	assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)

	other := offlineFileSystem("/home/tester")
	_, err = fs.GetPath("/a").Relativize(other.GetPath("/a"))
	assert.ErrorIs(t, err, ErrProviderMismatch)
	assert.ErrorIs(t, err, sshutils.ErrInvalidArgument)
}

func TestPathStartsAndEndsWith(t *testing.T) {
	fs := offlineFileSystem("/home/tester")
	p := fs.GetPath("/usr/local/bin")

	assert.True(t, p.StartsWith(fs.GetPath("/usr")))
	assert.True(t, p.StartsWith(fs.GetPath("/")))
	assert.False(t, p.StartsWith(fs.GetPath("usr")))
	assert.False(t, p.StartsWith(fs.GetPath("/us")))

	assert.True(t, p.EndsWith(fs.GetPath("local/bin")))
	assert.True(t, p.EndsWith(fs.GetPath("/usr/local/bin")))
	assert.False(t, p.EndsWith(fs.GetPath("/local/bin")))
	assert.False(t, p.EndsWith(fs.GetPath("in")))

	other := offlineFileSystem("/home/tester")
	assert.False(t, p.StartsWith(other.GetPath("/usr")))
	assert.False(t, p.Equal(other.GetPath("/usr/local/bin")))
}

func TestPathToAbsolute(t *testing.T) {
	fs := offlineFileSystem("/home/tester")

	assert.Equal(t, "/home/tester/notes.txt", fs.GetPath("notes.txt").ToAbsolute().String())
	assert.Equal(t, "/home/tester", fs.GetPath("").ToAbsolute().String())
	abs := fs.GetPath("/etc")
	assert.Same(t, abs, abs.ToAbsolute())
}

func TestFileSystemDescriptors(t *testing.T) {
	fs := offlineFileSystem("/srv/data")

	roots := fs.GetRootDirectories()
	require.Len(t, roots, 1)
	assert.Equal(t, "/", roots[0].String())
	assert.Equal(t, "/srv/data", fs.DefaultDirectory().String())
	assert.Equal(t, "/", fs.Separator())
	assert.Equal(t, "ssh://tester@example.com:22", fs.String())
}
