package sshfs

import (
	"errors"
	"fmt"

	"github.com/bacalhau-project/remotefs/pkg/sshutils"
)

var (
	ErrFileSystemExists   = errors.New("filesystem already exists")
	ErrFileSystemNotFound = errors.New("filesystem not found")
	ErrProviderMismatch   = fmt.Errorf("path belongs to another filesystem: %w", sshutils.ErrInvalidArgument)
)
