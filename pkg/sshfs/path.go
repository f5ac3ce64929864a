package sshfs

import (
	"fmt"
	"strings"

	"github.com/bacalhau-project/remotefs/pkg/sshutils"
)

const Separator = "/"

// Path is a Unix path on a remote filesystem. Paths are immutable and purely
// syntactic: nothing is checked against the remote side.
type Path struct {
	fs       *FileSystem
	absolute bool
	names    []string
}

func newPath(fs *FileSystem, s string) *Path {
	p := &Path{fs: fs, absolute: strings.HasPrefix(s, Separator)}
	for _, name := range strings.Split(s, Separator) {
		if name != "" {
			p.names = append(p.names, name)
		}
	}
	return p
}

func (p *Path) derive(absolute bool, names []string) *Path {
	return &Path{fs: p.fs, absolute: absolute, names: names}
}

func (p *Path) FileSystem() *FileSystem { return p.fs }

func (p *Path) IsAbsolute() bool { return p.absolute }

// Root returns "/" for an absolute path and nil otherwise.
func (p *Path) Root() *Path {
	if !p.absolute {
		return nil
	}
	return p.derive(true, nil)
}

// FileName returns the last name element as a relative path, or nil for the
// root and the empty path.
func (p *Path) FileName() *Path {
	if len(p.names) == 0 {
		return nil
	}
	return p.derive(false, []string{p.names[len(p.names)-1]})
}

// Parent returns p without its last element, or nil when there is none.
func (p *Path) Parent() *Path {
	switch {
	case len(p.names) == 0:
		return nil
	case len(p.names) == 1 && !p.absolute:
		return nil
	}
	return p.derive(p.absolute, clone(p.names[:len(p.names)-1]))
}

func (p *Path) NameCount() int { return len(p.names) }

// Name returns the element at index i as a relative path.
func (p *Path) Name(i int) (*Path, error) {
	if i < 0 || i >= len(p.names) {
		return nil, sshutils.NewOpError("name", p.String(), sshutils.ErrInvalidArgument,
			fmt.Errorf("index %d out of range [0,%d)", i, len(p.names)))
	}
	return p.derive(false, []string{p.names[i]}), nil
}

// Subpath returns the relative path of elements [begin,end).
func (p *Path) Subpath(begin, end int) (*Path, error) {
	if begin < 0 || end > len(p.names) || begin >= end {
		return nil, sshutils.NewOpError("subpath", p.String(), sshutils.ErrInvalidArgument,
			fmt.Errorf("invalid range [%d,%d) for %d names", begin, end, len(p.names)))
	}
	return p.derive(false, clone(p.names[begin:end])), nil
}

// Resolve joins other onto p. An absolute other is returned as is and an
// empty other returns p.
func (p *Path) Resolve(other string) *Path {
	return p.resolve(newPath(p.fs, other))
}

func (p *Path) resolve(other *Path) *Path {
	if other.absolute {
		return other
	}
	if len(other.names) == 0 {
		return p
	}
	names := make([]string, 0, len(p.names)+len(other.names))
	names = append(names, p.names...)
	names = append(names, other.names...)
	return p.derive(p.absolute, names)
}

// ResolveSibling resolves other against the parent of p.
func (p *Path) ResolveSibling(other string) *Path {
	parent := p.Parent()
	if parent == nil {
		return newPath(p.fs, other)
	}
	return parent.Resolve(other)
}

// Normalize removes "." elements and folds ".." into the preceding element.
// ".." directly below the root is dropped.
func (p *Path) Normalize() *Path {
	names := make([]string, 0, len(p.names))
	for _, name := range p.names {
		switch name {
		case ".":
		case "..":
			switch {
			case len(names) > 0 && names[len(names)-1] != "..":
				names = names[:len(names)-1]
			case p.absolute:
			default:
				names = append(names, name)
			}
		default:
			names = append(names, name)
		}
	}
	return p.derive(p.absolute, names)
}

// Relativize returns the relative path that leads from p to other. Both
// must belong to the same filesystem and be either absolute or relative.
func (p *Path) Relativize(other *Path) (*Path, error) {
	if err := p.sameFileSystem("relativize", other); err != nil {
		return nil, err
	}
	if p.absolute != other.absolute {
		return nil, sshutils.NewOpError("relativize", other.String(), sshutils.ErrInvalidArgument,
			fmt.Errorf("cannot relativize %q against %q", other, p))
	}

	common := 0
	for common < len(p.names) && common < len(other.names) && p.names[common] == other.names[common] {
		common++
	}
	names := make([]string, 0, len(p.names)-common+len(other.names)-common)
	for i := common; i < len(p.names); i++ {
		names = append(names, "..")
	}
	names = append(names, other.names[common:]...)
	return p.derive(false, names), nil
}

// StartsWith reports whether other is a leading run of p's elements.
func (p *Path) StartsWith(other *Path) bool {
	if other == nil || other.fs != p.fs || other.absolute != p.absolute {
		return false
	}
	if len(other.names) == 0 {
		return other.absolute || len(p.names) == 0
	}
	if len(other.names) > len(p.names) {
		return false
	}
	for i, name := range other.names {
		if p.names[i] != name {
			return false
		}
	}
	return true
}

// EndsWith reports whether other is a trailing run of p's elements. An
// absolute other only matches an equal path.
func (p *Path) EndsWith(other *Path) bool {
	if other == nil || other.fs != p.fs {
		return false
	}
	if other.absolute {
		return p.Equal(other)
	}
	if len(other.names) == 0 {
		return len(p.names) == 0
	}
	if len(other.names) > len(p.names) {
		return false
	}
	offset := len(p.names) - len(other.names)
	for i, name := range other.names {
		if p.names[offset+i] != name {
			return false
		}
	}
	return true
}

// ToAbsolute resolves p against the default directory of its filesystem.
func (p *Path) ToAbsolute() *Path {
	if p.absolute {
		return p
	}
	return p.fs.DefaultDirectory().resolve(p)
}

func (p *Path) Equal(other *Path) bool {
	if other == nil || other.fs != p.fs || other.absolute != p.absolute || len(other.names) != len(p.names) {
		return false
	}
	for i, name := range p.names {
		if other.names[i] != name {
			return false
		}
	}
	return true
}

func (p *Path) String() string {
	joined := strings.Join(p.names, Separator)
	if p.absolute {
		return Separator + joined
	}
	return joined
}

func (p *Path) sameFileSystem(op string, other *Path) error {
	if other == nil || other.fs != p.fs {
		return fmt.Errorf("%s %v: %w", op, other, ErrProviderMismatch)
	}
	return nil
}

func clone(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return append([]string(nil), names...)
}
