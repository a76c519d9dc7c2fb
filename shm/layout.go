package shm

import "unsafe"

// Wire constants. These values are authoritative across every language
// implementation of the channel; changing them requires bumping Version.
const (
	Magic   uint32 = 0x564E4F4D // "VNOM"
	Version uint32 = 2

	// MaxCmdSize is the maximum payload a single command slot can carry.
	MaxCmdSize = 4096

	// CacheLine is the false-sharing boundary every atomic hot field is
	// padded to its own line of.
	CacheLine = 64

	// NamePrefix is prepended to every caller-supplied namespace to form
	// the effective /dev/shm object name.
	NamePrefix = "/venom_"

	// MaxNameLen is the maximum length of the prefixed name.
	MaxNameLen = 255
)

// ChannelHeader sits at offset 0 of the shared region. Field order and
// sizes are part of the wire format; see SPEC_FULL.md §3.
type ChannelHeader struct {
	MagicField    uint32
	VersionField  uint32
	DataSize      uint64
	CmdSlots      uint64
	MaxClients    uint64
	NextClientID  uint32
	_             uint32 // align SeqlockOffset to 8 bytes
	SeqlockOffset uint64
	CmdQueueOffset uint64
	_             [8]byte // pad struct to a 64-byte cache line
}

// ChannelHeaderSize is sizeof(ChannelHeader); must equal CacheLine.
const ChannelHeaderSize = unsafe.Sizeof(ChannelHeader{})

// SeqLockHeader sits at the header-declared seqlock_offset, immediately
// followed in the region by DataSize bytes of payload.
type SeqLockHeader struct {
	Sequence uint64  // its own cache line
	_        [CacheLine - 8]byte
	DataSize uint64
	_        [CacheLine - 8]byte
}

const SeqLockHeaderSize = unsafe.Sizeof(SeqLockHeader{})

// MpscQueueHeader sits at the header-declared cmd_queue_offset, immediately
// followed by NumSlots CommandSlot records.
type MpscQueueHeader struct {
	WriteIdx uint64 // its own cache line
	_        [CacheLine - 8]byte
	ReadIdx  uint64 // its own cache line
	_        [CacheLine - 8]byte
	NumSlots uint64
	_        [CacheLine - 8]byte
}

const MpscQueueHeaderSize = unsafe.Sizeof(MpscQueueHeader{})

// Slot states, stored in CommandSlot.State.
const (
	SlotEmpty      uint32 = 0
	SlotWriting    uint32 = 1
	SlotReady      uint32 = 2
	SlotProcessing uint32 = 3
)

// CommandSlot is one fixed-capacity entry of the MPSC queue.
//
// The spec describes State as a single atomic byte; it is widened to a
// full atomic uint32 here because sync/atomic (unlike the teacher's
// per-field unsafe.Pointer casts onto uint32 seqlocks) exposes no atomic
// byte primitive. The wire size is unchanged: the three bytes the spec
// reserves as inter-field padding are absorbed into the wider State field.
type CommandSlot struct {
	State    uint32
	ClientID uint32
	CmdLen   uint32
	_        [CacheLine - 4 - 4 - 4]byte
	CmdData  [MaxCmdSize]byte
}

const CommandSlotSize = unsafe.Sizeof(CommandSlot{})

func init() {
	if ChannelHeaderSize != CacheLine {
		panic("shm: ChannelHeader must be exactly one cache line")
	}
	if SeqLockHeaderSize != 2*CacheLine {
		panic("shm: SeqLockHeader must be exactly two cache lines")
	}
	if MpscQueueHeaderSize != 3*CacheLine {
		panic("shm: MpscQueueHeader must be exactly three cache lines")
	}
	if CommandSlotSize != CacheLine+MaxCmdSize {
		panic("shm: CommandSlot must be one cache line plus MaxCmdSize")
	}
}

// roundUpCacheLine rounds n up to the next multiple of CacheLine.
func roundUpCacheLine(n uint64) uint64 {
	rem := n % CacheLine
	if rem == 0 {
		return n
	}
	return n + (CacheLine - rem)
}

// RegionSize computes the total byte size of a channel's shared region for
// the given payload capacity and slot count, per SPEC_FULL.md §3/§4.4.
func RegionSize(dataSize, cmdSlots uint64) uint64 {
	headerSize := roundUpCacheLine(uint64(ChannelHeaderSize))
	seqlockSize := roundUpCacheLine(uint64(SeqLockHeaderSize) + dataSize)
	queueSize := roundUpCacheLine(uint64(MpscQueueHeaderSize) + cmdSlots*uint64(CommandSlotSize))
	return headerSize + seqlockSize + queueSize
}
