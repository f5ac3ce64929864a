package table

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() any           { return nil }

func TestFileTable(t *testing.T) {
	var buf bytes.Buffer
	ft := NewFileTable(&buf)
	ft.AddEntry(fakeInfo{name: "notes.txt", size: 42, mode: 0o644})
	ft.AddEntry(fakeInfo{name: "logs", size: 4096, mode: os.ModeDir | 0o755})
	ft.AddLink(fakeInfo{name: "current", size: 8, mode: os.ModeSymlink | 0o777}, "/srv/releases/7")
	ft.Render()

	output := buf.String()
	assert.Equal(t, 3, ft.Len())
	assert.Contains(t, output, "current -> /srv/releases/7")
	assert.Contains(t, output, "MODE")
	assert.Contains(t, output, "notes.txt")
	assert.Contains(t, output, "-rw-r--r--")
	assert.Contains(t, output, "logs/")
	assert.Contains(t, output, "drwxr-xr-x")
	assert.Contains(t, output, "2024-03-01 12:30")
}

func TestResultTable(t *testing.T) {
	var buf bytes.Buffer
	rt := NewResultTable(&buf)
	rt.AddResult("root@web-1:22", 0, "ok\nsecond line")
	rt.AddResult("root@web-2:22", 3, "")
	rt.Render()

	output := buf.String()
	assert.Contains(t, output, "root@web-1:22")
	assert.Contains(t, output, "ok")
	assert.NotContains(t, output, "second line")
	assert.Contains(t, output, "3")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 20)
	assert.Equal(t, strings.Repeat("x", 7)+"...", truncate(long, 10))
}
