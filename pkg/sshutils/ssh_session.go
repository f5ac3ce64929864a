package sshutils

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// SSHSessioner is one command channel: one command, three streams and one
// exit status.
type SSHSessioner interface {
	Start(cmd string) error
	Wait() error
	Run(cmd string) error
	Signal(sig ssh.Signal) error
	Close() error
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
}

type SSHSessionWrapper struct {
	Session *ssh.Session
}

func (s *SSHSessionWrapper) Start(cmd string) error {
	return s.Session.Start(cmd)
}

func (s *SSHSessionWrapper) Wait() error {
	return s.Session.Wait()
}

func (s *SSHSessionWrapper) Run(cmd string) error {
	return s.Session.Run(cmd)
}

func (s *SSHSessionWrapper) Signal(sig ssh.Signal) error {
	return s.Session.Signal(sig)
}

func (s *SSHSessionWrapper) Close() error {
	return s.Session.Close()
}

func (s *SSHSessionWrapper) StdinPipe() (io.WriteCloser, error) {
	return s.Session.StdinPipe()
}

func (s *SSHSessionWrapper) StdoutPipe() (io.Reader, error) {
	return s.Session.StdoutPipe()
}

func (s *SSHSessionWrapper) StderrPipe() (io.Reader, error) {
	return s.Session.StderrPipe()
}

func (s *SSHSessionWrapper) SetStdout(w io.Writer) {
	s.Session.Stdout = w
}

func (s *SSHSessionWrapper) SetStderr(w io.Writer) {
	s.Session.Stderr = w
}
