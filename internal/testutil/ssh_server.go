package testutil

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// ExitNoStatus makes the server close an exec channel without sending an
// exit status.
const ExitNoStatus = -1

// ExecHandler runs one exec request. ctx is cancelled when the client sends
// a signal or closes the channel. The returned value is sent as exit status.
type ExecHandler func(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) int

// SSHServer is an in-process SSH server listening on 127.0.0.1. Exec requests
// are dispatched to an ExecHandler and the sftp subsystem is served from one
// in-memory filesystem shared by every connection.
type SSHServer struct {
	Addr      string
	Host      string
	Port      int
	User      string
	Password  string
	HostKey   ssh.PublicKey
	ClientKey KeyPair

	exec     ExecHandler
	handlers sftp.Handlers
	listener net.Listener

	connsMu sync.Mutex
	conns   []net.Conn
	done    chan struct{}

	accepted     atomic.Int32
	execChannels atomic.Int32
	sftpChannels atomic.Int32
	openChannels atomic.Int32
	signals      atomic.Int32
	forwards     atomic.Int32
}

// NewSSHServer starts a server for t. It is shut down by t.Cleanup.
func NewSSHServer(t *testing.T, exec ExecHandler) *SSHServer {
	t.Helper()

	hostKey := GenerateKeyPair(t, "")
	s := &SSHServer{
		User:      "tester",
		Password:  "secret",
		HostKey:   hostKey.PublicKey(),
		ClientKey: GenerateKeyPair(t, ""),
		exec:      exec,
		handlers:  sftp.InMemHandler(),
		done:      make(chan struct{}),
	}
	if s.exec == nil {
		s.exec = func(context.Context, string, io.Reader, io.Writer, io.Writer) int { return 0 }
	}

	authorized := ssh.FingerprintSHA256(s.ClientKey.PublicKey())
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if conn.User() == s.User && ssh.FingerprintSHA256(key) == authorized {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == s.User && string(password) == s.Password {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected")
		},
	}
	config.AddHostKey(hostKey.Signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.listener = listener
	s.Addr = listener.Addr().String()
	host, port, err := net.SplitHostPort(s.Addr)
	require.NoError(t, err)
	s.Host = host
	s.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	go func() {
		defer close(s.done)
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			s.accepted.Add(1)
			s.connsMu.Lock()
			s.conns = append(s.conns, netConn)
			s.connsMu.Unlock()
			go s.handleConn(netConn, config)
		}
	}()

	t.Cleanup(s.Close)
	return s
}

func (s *SSHServer) Close() {
	s.listener.Close()
	s.connsMu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
	s.connsMu.Unlock()
	<-s.done
}

// DropConnections closes every accepted connection, leaving the listener open.
func (s *SSHServer) DropConnections() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

// Options returns a configuration map that authenticates with the client key.
func (s *SSHServer) Options() map[string]any {
	return map[string]any{
		"user":                     s.User,
		"port":                     s.Port,
		"private_key":              string(s.ClientKey.PrivateKeyPEM),
		"strict_host_key_checking": false,
		"connect_retries":          0,
		"close_grace":              "2s",
	}
}

// URI returns ssh://user@host:port followed by path.
func (s *SSHServer) URI(path string) string {
	return fmt.Sprintf("ssh://%s@%s%s", s.User, s.Addr, path)
}

func (s *SSHServer) Connections() int { return int(s.accepted.Load()) }
func (s *SSHServer) ExecChannels() int { return int(s.execChannels.Load()) }
func (s *SSHServer) SFTPChannels() int { return int(s.sftpChannels.Load()) }
func (s *SSHServer) OpenChannels() int { return int(s.openChannels.Load()) }
func (s *SSHServer) SignalsReceived() int { return int(s.signals.Load()) }
func (s *SSHServer) Forwards() int { return int(s.forwards.Load()) }

func (s *SSHServer) handleConn(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		switch newChan.ChannelType() {
		case "session":
		case "direct-tcpip":
			go s.handleForward(newChan)
			continue
		default:
			_ = newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		s.openChannels.Add(1)
		go s.handleSession(ch, requests)
	}
}

func (s *SSHServer) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		ch.Close()
		wg.Wait()
		s.openChannels.Add(-1)
	}()

	started := false
	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if started || ssh.Unmarshal(req.Payload, &payload) != nil {
				_ = req.Reply(false, nil)
				continue
			}
			started = true
			s.execChannels.Add(1)
			_ = req.Reply(true, nil)
			wg.Add(1)
			go func() {
				defer wg.Done()
				code := s.exec(ctx, payload.Command, ch, ch, ch.Stderr())
				_ = ch.CloseWrite()
				if code != ExitNoStatus {
					status := struct{ Status uint32 }{uint32(code)} //nolint:gosec
					_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
				}
				ch.Close()
			}()
		case "subsystem":
			var payload struct{ Name string }
			if started || ssh.Unmarshal(req.Payload, &payload) != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			started = true
			s.sftpChannels.Add(1)
			_ = req.Reply(true, nil)
			wg.Add(1)
			go func() {
				defer wg.Done()
				server := sftp.NewRequestServer(ch, s.handlers)
				_ = server.Serve()
				server.Close()
				ch.Close()
			}()
		case "signal":
			s.signals.Add(1)
			cancel()
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

// handleForward serves direct-tcpip channels so the server can act as a jump host.
func (s *SSHServer) handleForward(newChan ssh.NewChannel) {
	var payload struct {
		Host     string
		Port     uint32
		OrigHost string
		OrigPort uint32
	}
	if err := ssh.Unmarshal(newChan.ExtraData(), &payload); err != nil {
		_ = newChan.Reject(ssh.ConnectionFailed, "malformed forward request")
		return
	}
	target, err := net.Dial("tcp", net.JoinHostPort(payload.Host, strconv.Itoa(int(payload.Port))))
	if err != nil {
		_ = newChan.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	ch, requests, err := newChan.Accept()
	if err != nil {
		target.Close()
		return
	}
	s.forwards.Add(1)
	go ssh.DiscardRequests(requests)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(target, ch)
		if tcp, ok := target.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(ch, target)
		_ = ch.CloseWrite()
	}()
	wg.Wait()
	ch.Close()
	target.Close()
}
