package shm

import (
	"github.com/AlephTX/venom/verrors"
)

// Channel is one complete named IPC surface: a handshake header, a single
// SeqLockFrame for daemon→shell data publication, and an MpscQueue for
// shell→daemon commands, all packed into one mmap'd region.
//
// Adapted from the teacher's shm.Matrix, which also mmaps one region once
// and carves it into multiple fixed substructures (SymbolVersions and
// BboMatrix) addressed by unsafe.Pointer casts at fixed offsets, rather than
// opening a separate shared-memory object per substructure. This generalizes
// that layout from Matrix's two hardcoded arrays to the header-declared
// offsets of SPEC_FULL.md §3/§4.4, so the substructure sizes are a per-call
// Config instead of compile-time constants.
type Channel struct {
	obj   *ShmObject
	seq   *SeqLockFrame
	queue *MpscQueue

	maxClients uint64
}

const (
	chOffMagic        = 0
	chOffVersion       = 4
	chOffDataSize      = 8
	chOffCmdSlots      = 16
	chOffMaxClients    = 24
	chOffNextClientID  = 32
	chOffSeqlockOffset = 40
	chOffCmdQueueOffset = 48
)

// ChannelConfig describes the capacity of a channel at creation time.
type ChannelConfig struct {
	DataSize   uint64 // payload bytes carried by the SeqLockFrame
	CmdSlots   uint64 // number of MPSC command slots
	MaxClients uint64 // advisory cap surfaced to callers via MaxClients()
}

// CreateChannel creates a named channel sized per cfg and stamps its
// handshake header. If a region of that name already exists, it is attached
// to as-is: its header is not re-stamped, and the returned Channel does not
// own it (Destroy only unmaps). The caller is responsible for eventually
// calling Destroy.
func CreateChannel(name string, cfg ChannelConfig) (*Channel, error) {
	size := RegionSize(cfg.DataSize, cfg.CmdSlots)
	obj, err := Create(name, size)
	if err != nil {
		return nil, err
	}

	data := obj.Bytes()
	headerSize := roundUpCacheLine(uint64(ChannelHeaderSize))
	seqlockOffset := headerSize
	cmdQueueOffset := seqlockOffset + roundUpCacheLine(uint64(SeqLockHeaderSize)+cfg.DataSize)

	if obj.IsOwner() {
		storeU32(data, chOffMagic, Magic)
		storeU32(data, chOffVersion, Version)
		storeU64(data, chOffDataSize, cfg.DataSize)
		storeU64(data, chOffCmdSlots, cfg.CmdSlots)
		storeU64(data, chOffMaxClients, cfg.MaxClients)
		storeU32(data, chOffNextClientID, 1)
		storeU64(data, chOffSeqlockOffset, seqlockOffset)
		storeU64(data, chOffCmdQueueOffset, cmdQueueOffset)

		initSeqLockHeader(data[seqlockOffset:], cfg.DataSize)
		initMpscQueueHeader(data[cmdQueueOffset:], cfg.CmdSlots)
	}

	return newChannel(obj, data, cfg.MaxClients)
}

// OpenChannel attaches to an existing named channel, validating its
// handshake header and returning this shell's assigned client ID.
func OpenChannel(name string) (ch *Channel, clientID uint32, err error) {
	obj, err := Open(name)
	if err != nil {
		return nil, 0, err
	}
	data := obj.Bytes()

	if got := loadU32(data, chOffMagic); got != Magic {
		return nil, 0, verrors.WrapMagic("OpenChannel", Magic, got)
	}
	if got := loadU32(data, chOffVersion); got != Version {
		return nil, 0, verrors.WrapVersion("OpenChannel", Version, got)
	}

	maxClients := loadU64(data, chOffMaxClients)
	id := addU32(data, chOffNextClientID, 1) - 1

	ch, err = newChannel(obj, data, maxClients)
	if err != nil {
		return nil, 0, err
	}
	return ch, id, nil
}

func newChannel(obj *ShmObject, data []byte, maxClients uint64) (*Channel, error) {
	dataSize := loadU64(data, chOffDataSize)
	cmdSlots := loadU64(data, chOffCmdSlots)
	seqlockOffset := loadU64(data, chOffSeqlockOffset)
	cmdQueueOffset := loadU64(data, chOffCmdQueueOffset)

	seq := newSeqLockFrame(data[seqlockOffset:], dataSize)

	queueHeaderEnd := cmdQueueOffset + uint64(MpscQueueHeaderSize)
	slots := data[queueHeaderEnd : queueHeaderEnd+cmdSlots*uint64(CommandSlotSize)]
	queue := newMpscQueue(data[cmdQueueOffset:], slots, cmdSlots)

	return &Channel{obj: obj, seq: seq, queue: queue, maxClients: maxClients}, nil
}

// Data returns the channel's publication frame.
func (c *Channel) Data() *SeqLockFrame { return c.seq }

// Commands returns the channel's command queue.
func (c *Channel) Commands() *MpscQueue { return c.queue }

// MaxClients returns the advisory client cap stamped at creation.
func (c *Channel) MaxClients() uint64 { return c.maxClients }

// Name returns the channel's logical name.
func (c *Channel) Name() string { return c.obj.Name() }

// ClientCount returns the number of client IDs handed out so far via
// OpenChannel (including ones that have since disconnected).
func (c *Channel) ClientCount() uint32 {
	return loadU32(c.obj.Bytes(), chOffNextClientID) - 1
}

// Destroy unmaps (and, if owned, unlinks) the underlying shared region.
func (c *Channel) Destroy() error {
	return c.obj.Destroy()
}
