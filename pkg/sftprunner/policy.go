package sftprunner

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/pkg/sftp"
)

// channelPolicy decides how units of work get their channel.
type channelPolicy interface {
	run(ctx context.Context, work Sftp) error
	close() error
}

type openFunc func() (*sftp.Client, error)

// sharedChannel keeps one channel and serializes work on it. The channel is
// opened on first use and reopened once it has closed or been found broken.
type sharedChannel struct {
	open   openFunc
	logger *logger.Logger

	mu   sync.Mutex
	held *heldChannel
}

// heldChannel is a channel plus a watcher that notices when it shuts down,
// whichever side closed it.
type heldChannel struct {
	client *sftp.Client
	done   chan struct{}
}

func hold(client *sftp.Client) *heldChannel {
	h := &heldChannel{client: client, done: make(chan struct{})}
	go func() {
		_ = client.Wait()
		close(h.done)
	}()
	return h
}

func (h *heldChannel) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (p *sharedChannel) run(ctx context.Context, work Sftp) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.held != nil && p.held.closed() {
		p.logger.Debug("SFTP channel closed, reopening")
		p.drop()
	}
	if p.held == nil {
		client, err := p.open()
		if err != nil {
			return err
		}
		p.held = hold(client)
	}
	client := p.held.client

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnf("Unit of work panicked, dropping sftp channel: %v", r)
			p.drop()
			panic(r)
		}
	}()

	err = work(ctx, client)
	if err != nil && !isRegularError(err) {
		if _, probeErr := client.Getwd(); probeErr != nil {
			p.logger.Debugf("SFTP channel failed, closing: %v", probeErr)
			p.drop()
		} else {
			p.logger.Debugf("SFTP channel OK after error: %v", err)
		}
	}
	return err
}

// stale reports whether the held channel has shut down and will be
// replaced on the next run.
func (p *sharedChannel) stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held != nil && p.held.closed()
}

// drop closes the held channel. Callers hold p.mu.
func (p *sharedChannel) drop() {
	if p.held == nil {
		return
	}
	if err := p.held.client.Close(); err != nil {
		p.logger.Debugf("Error closing sftp channel: %v", err)
	}
	p.held = nil
}

// close waits for the unit of work in flight, if any, then closes the channel.
func (p *sharedChannel) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held == nil {
		return nil
	}
	gone := p.held.closed()
	err := p.held.client.Close()
	p.held = nil
	if gone {
		return nil
	}
	return err
}

// perCallChannel gives every unit of work a fresh channel.
type perCallChannel struct {
	open   openFunc
	logger *logger.Logger
}

func (p *perCallChannel) run(ctx context.Context, work Sftp) error {
	client, err := p.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			p.logger.Debugf("Error closing sftp channel: %v", err)
		}
	}()
	return work(ctx, client)
}

func (p *perCallChannel) close() error {
	return nil
}

// isRegularError reports whether err is an ordinary filesystem answer from
// the server, which says nothing about the health of the channel.
func isRegularError(err error) bool {
	var statusErr *sftp.StatusError
	var pathErr *os.PathError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return true
	case errors.As(err, &statusErr):
		return true
	case errors.As(err, &pathErr):
		return true
	}
	return false
}
