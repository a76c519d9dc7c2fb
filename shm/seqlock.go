package shm

import (
	"encoding/binary"
	"runtime"
)

// SeqLockFrame is a lock-free, single-writer, many-reader publication
// primitive for one variable-length frame.
//
// Grounded on the teacher's shm.Matrix.WriteBBO / shm.RingBuffer seqlock
// phases (odd→write→even over an atomic counter guarding a fixed struct),
// generalized from a fixed 64-byte payload to an arbitrary data_size byte
// region, and from the teacher's assume-the-reader-keeps-up model to an
// explicit spin-retry reader protocol (SPEC_FULL.md §4.2), closer to
// calvinalkan-agent-task/pkg/slotcache's seqlock generation + retry loop.
type SeqLockFrame struct {
	region   []byte // the SeqLockHeader + payload, i.e. data[seqlockOffset:]
	dataSize uint64
}

const (
	seqOffSequence = 0
	seqOffDataSize = 8
)

func newSeqLockFrame(region []byte, dataSize uint64) *SeqLockFrame {
	return &SeqLockFrame{region: region, dataSize: dataSize}
}

// initSeqLockHeader zero-initializes a freshly created SeqLockHeader.
func initSeqLockHeader(region []byte, dataSize uint64) {
	storeU64(region, seqOffSequence, 0)
	storeU64(region, seqOffDataSize, dataSize)
}

func (f *SeqLockFrame) payload() []byte {
	return f.region[SeqLockHeaderSize:]
}

// Write publishes payload, truncating silently to DataSize() if it is
// longer. The writer is wait-free: this never blocks or retries.
func (f *SeqLockFrame) Write(payload []byte) {
	if uint64(len(payload)) > f.dataSize {
		payload = payload[:f.dataSize]
	}
	seq := loadU64(f.region, seqOffSequence)
	storeU64(f.region, seqOffSequence, seq+1) // odd: publish in progress
	copy(f.payload(), payload)
	storeU64(f.region, seqOffSequence, seq+2) // even: stable
}

// WriteWithLen publishes payload prefixed with its own 8-byte little-endian
// length, truncating silently to DataSize()-8 bytes of payload.
func (f *SeqLockFrame) WriteWithLen(payload []byte) {
	maxPayload := int64(f.dataSize) - 8
	if maxPayload < 0 {
		maxPayload = 0
	}
	if int64(len(payload)) > maxPayload {
		payload = payload[:maxPayload]
	}

	seq := loadU64(f.region, seqOffSequence)
	storeU64(f.region, seqOffSequence, seq+1)
	buf := f.payload()
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(payload)))
	copy(buf[8:], payload)
	storeU64(f.region, seqOffSequence, seq+2)
}

// Read spin-reads until a consistent snapshot is obtained and returns
// min(DataSize(), len(buf)) bytes copied into buf.
func (f *SeqLockFrame) Read(buf []byte) int {
	for {
		if n, ok := f.tryRead(buf); ok {
			return n
		}
		runtime.Gosched()
	}
}

// TryRead makes a single attempt. ok is false if a publish was in progress
// or the frame changed mid-copy; the caller may retry.
func (f *SeqLockFrame) TryRead(buf []byte) (n int, ok bool) {
	return f.tryRead(buf)
}

func (f *SeqLockFrame) tryRead(buf []byte) (int, bool) {
	seq1 := loadU64(f.region, seqOffSequence)
	if seq1&1 == 1 {
		return 0, false
	}
	n := len(buf)
	if uint64(n) > f.dataSize {
		n = int(f.dataSize)
	}
	copy(buf[:n], f.payload()[:n])
	seq2 := loadU64(f.region, seqOffSequence)
	if seq1 != seq2 {
		return 0, false
	}
	return n, true
}

// ReadWithLen spin-reads a length-prefixed frame, returning the frame's
// actual length even if it exceeds len(buf) (only min(actualLen, len(buf))
// bytes are written into buf).
func (f *SeqLockFrame) ReadWithLen(buf []byte) int {
	for {
		if n, ok := f.tryReadWithLen(buf); ok {
			return n
		}
		runtime.Gosched()
	}
}

// TryReadWithLen makes a single attempt at a length-prefixed read.
func (f *SeqLockFrame) TryReadWithLen(buf []byte) (actualLen int, ok bool) {
	return f.tryReadWithLen(buf)
}

func (f *SeqLockFrame) tryReadWithLen(buf []byte) (int, bool) {
	if f.dataSize < 8 {
		return 0, true
	}
	seq1 := loadU64(f.region, seqOffSequence)
	if seq1&1 == 1 {
		return 0, false
	}
	full := f.payload()
	actualLen := int(binary.LittleEndian.Uint64(full[:8]))
	maxPayload := int(f.dataSize - 8)
	if actualLen > maxPayload {
		actualLen = maxPayload
	}
	n := actualLen
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf[:n], full[8:8+n])
	seq2 := loadU64(f.region, seqOffSequence)
	if seq1 != seq2 {
		return 0, false
	}
	return actualLen, true
}

// DataSize returns the frame's payload capacity in bytes.
func (f *SeqLockFrame) DataSize() uint64 { return f.dataSize }
