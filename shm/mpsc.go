package shm

import (
	"runtime"

	"github.com/AlephTX/venom/verrors"
)

// MpscQueue is a bounded, multi-producer single-consumer queue of
// fixed-capacity CommandSlot records.
//
// Adapted from the teacher's shm.RingBuffer (an SPSC ring with atomic woff/
// roff offsets over a raw byte region under /dev/shm). That ring only ever
// has one writer, so a plain atomic offset bump is enough; with multiple
// concurrent producers the same move would let two callers claim the same
// slot. This generalizes the offset into a per-slot 4-state machine (closer
// to taurusjun-quantlink-trade-system/tbsrc-golang's shm.MWMRQueue, which
// also claims slots via atomic.AddUint64 over a fetch-and-add sequence
// number) but adds the explicit WRITING/READY/PROCESSING states the quantlink
// queue has no room for, so a consumer can tell "claimed but not yet
// published" apart from "published" and "already taken".
type MpscQueue struct {
	header []byte // MpscQueueHeader region
	slots  []byte // NumSlots * CommandSlotSize region
	n      uint64
}

const (
	mqOffWriteIdx = 0
	mqOffReadIdx  = CacheLine
	mqOffNumSlots = 2 * CacheLine
)

func newMpscQueue(header, slots []byte, n uint64) *MpscQueue {
	return &MpscQueue{header: header, slots: slots, n: n}
}

// initMpscQueueHeader zero-initializes a freshly created MpscQueueHeader.
func initMpscQueueHeader(header []byte, n uint64) {
	storeU64(header, mqOffWriteIdx, 0)
	storeU64(header, mqOffReadIdx, 0)
	storeU64(header, mqOffNumSlots, n)
}

func (q *MpscQueue) slot(idx uint64) []byte {
	off := (idx % q.n) * uint64(CommandSlotSize)
	return q.slots[off : off+uint64(CommandSlotSize)]
}

const (
	slotOffState    = 0
	slotOffClientID = 4
	slotOffCmdLen   = 8
	slotOffCmdData  = CacheLine
)

// TryPush attempts to enqueue cmd from clientID without blocking. It returns
// verrors.KindBufferOverflow if cmd exceeds MaxCmdSize, and
// verrors.KindQueueFull if the slot its claimed index maps to is still
// occupied (other slots may be free).
func (q *MpscQueue) TryPush(clientID uint32, cmd []byte) error {
	if len(cmd) > MaxCmdSize {
		return verrors.New(verrors.KindBufferOverflow, "MpscQueue.TryPush", "command exceeds MaxCmdSize")
	}

	idx := addU64(q.header, mqOffWriteIdx, 1) - 1
	s := q.slot(idx)

	if !casU32(s, slotOffState, SlotEmpty, SlotWriting) {
		// The slot a producer would need is still occupied; the consumer
		// has not drained far enough. write_idx has already advanced past
		// this claim attempt and is not rolled back: a later retry simply
		// claims the next slot in sequence once the consumer catches up.
		return verrors.New(verrors.KindQueueFull, "MpscQueue.TryPush", "no free slot")
	}

	storeU32(s, slotOffClientID, clientID)
	storeU32(s, slotOffCmdLen, uint32(len(cmd)))
	copy(s[slotOffCmdData:], cmd)
	storeU32(s, slotOffState, SlotReady)
	return nil
}

// Push retries TryPush while it reports KindQueueFull, spinning with Gosched
// (the SeqLockFrame reader's busy-wait idiom used throughout this package),
// until the queue accepts cmd. Any other error is returned at once.
func (q *MpscQueue) Push(clientID uint32, cmd []byte) error {
	for {
		err := q.TryPush(clientID, cmd)
		if err == nil {
			return nil
		}
		if !verrors.Is(err, verrors.KindQueueFull) {
			return err
		}
		runtime.Gosched()
	}
}

// PoppedCommand is one dequeued command.
type PoppedCommand struct {
	ClientID uint32
	Data     []byte
}

// TryPop attempts to dequeue the oldest ready command without blocking. ok is
// false if the queue is currently empty.
func (q *MpscQueue) TryPop() (cmd PoppedCommand, ok bool) {
	readIdx := loadU64(q.header, mqOffReadIdx)
	s := q.slot(readIdx)

	if !casU32(s, slotOffState, SlotReady, SlotProcessing) {
		return PoppedCommand{}, false
	}

	clientID := loadU32(s, slotOffClientID)
	cmdLen := loadU32(s, slotOffCmdLen)
	data := make([]byte, cmdLen)
	copy(data, s[slotOffCmdData:slotOffCmdData+uint64(cmdLen)])

	storeU32(s, slotOffState, SlotEmpty)
	storeU64(q.header, mqOffReadIdx, readIdx+1)

	return PoppedCommand{ClientID: clientID, Data: data}, true
}

// Pop blocks, spinning with Gosched, until a command is available.
func (q *MpscQueue) Pop() PoppedCommand {
	for {
		if cmd, ok := q.TryPop(); ok {
			return cmd
		}
		runtime.Gosched()
	}
}

// PopWithSpins bounds the busy-wait to maxSpins attempts before giving up.
func (q *MpscQueue) PopWithSpins(maxSpins int) (cmd PoppedCommand, ok bool) {
	for i := 0; i < maxSpins; i++ {
		if cmd, ok := q.TryPop(); ok {
			return cmd, true
		}
		runtime.Gosched()
	}
	return PoppedCommand{}, false
}

// NumSlots returns the queue's fixed capacity.
func (q *MpscQueue) NumSlots() uint64 { return q.n }
