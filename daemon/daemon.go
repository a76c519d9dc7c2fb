// Package daemon is the channel-owning role: the sole SeqLock writer and
// sole MPSC consumer for one named channel.
package daemon

import (
	"bytes"

	"github.com/AlephTX/venom/shm"
)

// shutdownSentinel is the literal command payload that ends Run without
// invoking the handler.
var shutdownSentinel = []byte("__SHUTDOWN__")

// Daemon is the façade a channel's creating process uses to publish data
// and consume commands. It adds no state beyond the underlying Channel;
// every observable effect is a Channel/SeqLockFrame/MpscQueue effect.
type Daemon struct {
	ch *shm.Channel
}

// Create creates a named channel and returns the Daemon façade over it. If a
// channel of that name already exists, the Daemon attaches to it without
// owning it (see shm.CreateChannel).
func Create(name string, cfg shm.ChannelConfig) (*Daemon, error) {
	ch, err := shm.CreateChannel(name, cfg)
	if err != nil {
		return nil, err
	}
	return &Daemon{ch: ch}, nil
}

// WriteData publishes payload as the channel's current data frame.
func (d *Daemon) WriteData(payload []byte) {
	d.ch.Data().Write(payload)
}

// WriteDataWithLen publishes a length-prefixed payload as the channel's
// current data frame.
func (d *Daemon) WriteDataWithLen(payload []byte) {
	d.ch.Data().WriteWithLen(payload)
}

// TryRecvCommand attempts a single non-blocking dequeue.
func (d *Daemon) TryRecvCommand() (cmd shm.PoppedCommand, ok bool) {
	return d.ch.Commands().TryPop()
}

// RecvCommand blocks until a command is available.
func (d *Daemon) RecvCommand() shm.PoppedCommand {
	return d.ch.Commands().Pop()
}

// Handler computes a response payload for one received command.
type Handler func(cmd shm.PoppedCommand) []byte

// Run drains commands, invoking handler for each and publishing its
// response via write_with_len, until it receives the literal shutdown
// sentinel __SHUTDOWN__ — which ends the loop without invoking handler.
func (d *Daemon) Run(handler Handler) {
	for {
		cmd := d.RecvCommand()
		if bytes.Equal(cmd.Data, shutdownSentinel) {
			return
		}
		resp := handler(cmd)
		d.WriteDataWithLen(resp)
	}
}

// Destroy unmaps the channel's shared region and, if this Daemon created
// it, unlinks it.
func (d *Daemon) Destroy() error {
	return d.ch.Destroy()
}
