// Package shell is the peer role: a SeqLock reader and an MPSC producer
// attached to a channel it did not create.
package shell

import (
	"runtime"

	"github.com/AlephTX/venom/shm"
)

// Shell is the façade a peer process uses after attaching to an existing
// channel. It adds no state beyond the underlying Channel and the client id
// assigned to it at attach time.
type Shell struct {
	ch       *shm.Channel
	clientID uint32
}

// Connect opens an existing named channel, validating its handshake header,
// and returns a Shell carrying the client id assigned by the attach.
func Connect(name string) (*Shell, error) {
	ch, id, err := shm.OpenChannel(name)
	if err != nil {
		return nil, err
	}
	return &Shell{ch: ch, clientID: id}, nil
}

// ClientID returns the id assigned to this shell at attach time.
func (s *Shell) ClientID() uint32 { return s.clientID }

// ReadData spin-reads the channel's current data frame into buf, returning
// min(data_size, len(buf)) bytes.
func (s *Shell) ReadData(buf []byte) int {
	return s.ch.Data().Read(buf)
}

// ReadDataWithLen spin-reads the channel's length-prefixed data frame,
// returning the frame's actual length even if it exceeds len(buf).
func (s *Shell) ReadDataWithLen(buf []byte) int {
	return s.ch.Data().ReadWithLen(buf)
}

// TryReadData makes a single non-blocking attempt at ReadData.
func (s *Shell) TryReadData(buf []byte) (n int, ok bool) {
	return s.ch.Data().TryRead(buf)
}

// TryReadDataWithLen makes a single non-blocking attempt at ReadDataWithLen.
func (s *Shell) TryReadDataWithLen(buf []byte) (n int, ok bool) {
	return s.ch.Data().TryReadWithLen(buf)
}

// TrySendCommand makes a single non-blocking attempt to enqueue cmd.
func (s *Shell) TrySendCommand(cmd []byte) error {
	return s.ch.Commands().TryPush(s.clientID, cmd)
}

// SendCommand retries until cmd is accepted by the command queue.
func (s *Shell) SendCommand(cmd []byte) error {
	return s.ch.Commands().Push(s.clientID, cmd)
}

// Request sends cmd, then spin-reads the length-prefixed data frame until a
// non-empty frame appears, returning its actual length. It reads with the
// length prefix rather than the plain frame because a freshly created
// channel's data region starts zero-initialized and stable (sequence even):
// a plain read would report a full, "non-empty" frame of zero bytes on the
// very first spin, before the daemon ever publishes a response.
func (s *Shell) Request(cmd []byte, buf []byte) (int, error) {
	if err := s.SendCommand(cmd); err != nil {
		return 0, err
	}
	for {
		if n, ok := s.TryReadDataWithLen(buf); ok && n > 0 {
			return n, nil
		}
		runtime.Gosched()
	}
}

// Destroy unmaps this shell's (non-owning) view of the channel's shared
// region.
func (s *Shell) Destroy() error {
	return s.ch.Destroy()
}
