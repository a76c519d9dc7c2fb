package shm

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func newTestSeqLockFrame(dataSize uint64) *SeqLockFrame {
	region := make([]byte, uint64(SeqLockHeaderSize)+dataSize)
	initSeqLockHeader(region, dataSize)
	return newSeqLockFrame(region, dataSize)
}

func TestSeqLockFrameRoundTrip(t *testing.T) {
	f := newTestSeqLockFrame(64)
	f.Write([]byte("hello"))

	buf := make([]byte, 64)
	n := f.Read(buf)
	if n != 64 {
		t.Fatalf("Read() n = %d, want 64", n)
	}
	if !bytes.Equal(buf[:5], []byte("hello")) {
		t.Fatalf("Read() = %q, want prefix %q", buf[:5], "hello")
	}
}

func TestSeqLockFrameWriteWithLenRoundTrip(t *testing.T) {
	f := newTestSeqLockFrame(1024)
	f.WriteWithLen([]byte("hello"))

	buf := make([]byte, 64)
	n := f.ReadWithLen(buf)
	if n != 5 {
		t.Fatalf("ReadWithLen() n = %d, want 5", n)
	}
	if !bytes.Equal(buf[:5], []byte("hello")) {
		t.Fatalf("ReadWithLen() = %q, want %q", buf[:5], "hello")
	}
}

func TestSeqLockFrameOverlongPayloadTruncated(t *testing.T) {
	f := newTestSeqLockFrame(8)
	f.Write([]byte("0123456789"))

	buf := make([]byte, 8)
	n := f.Read(buf)
	if n != 8 {
		t.Fatalf("Read() n = %d, want 8", n)
	}
	if !bytes.Equal(buf, []byte("01234567")) {
		t.Fatalf("Read() = %q, want %q", buf, "01234567")
	}
}

func TestSeqLockFrameTryReadDuringPublishFails(t *testing.T) {
	f := newTestSeqLockFrame(64)
	storeU64(f.region, seqOffSequence, 1) // odd: publish in progress

	buf := make([]byte, 64)
	if _, ok := f.TryRead(buf); ok {
		t.Fatal("TryRead() succeeded while sequence is odd")
	}
}

// TestSeqLockFrameTearFree mirrors the scenario of a writer publishing a
// single repeated byte value per iteration and a concurrent reader
// asserting every observed frame is homogeneous.
func TestSeqLockFrameTearFree(t *testing.T) {
	const dataSize = 256
	const iterations = 10000

	f := newTestSeqLockFrame(dataSize)
	stop := make(chan struct{})
	var readerErr error
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, dataSize)
		for {
			select {
			case <-stop:
				return
			default:
			}
			n, ok := f.TryRead(buf)
			if !ok || n == 0 {
				continue
			}
			first := buf[0]
			for _, b := range buf[:n] {
				if b != first {
					readerErr = fmt.Errorf("torn read: frame is not homogeneous: %v", buf[:n])
					return
				}
			}
		}
	}()

	payload := make([]byte, dataSize)
	for i := 0; i < iterations; i++ {
		b := byte(i % 256)
		for j := range payload {
			payload[j] = b
		}
		f.Write(payload)
	}
	close(stop)
	wg.Wait()

	if readerErr != nil {
		t.Fatal(readerErr)
	}
}

func TestSeqLockFrameAtomicityOfPublish(t *testing.T) {
	const dataSize = 32
	const writes = 500

	f := newTestSeqLockFrame(dataSize)
	written := make(map[string]bool, writes)
	written[string(make([]byte, dataSize))] = true // the region's zero-initialized state, before the first write
	var writtenMu sync.Mutex
	var badFrame string

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, dataSize)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n, ok := f.TryRead(buf); ok && n > 0 {
				seen := string(buf[:n])
				writtenMu.Lock()
				if !written[seen] && badFrame == "" {
					badFrame = seen
				}
				writtenMu.Unlock()
			}
		}
	}()

	for i := 0; i < writes; i++ {
		// Pad to the full frame: TryRead returns all dataSize bytes, so a
		// shorter payload would be seen with trailing zeros.
		p := make([]byte, dataSize)
		copy(p, fmt.Sprintf("payload-%08d-%08d", i, i*7))
		writtenMu.Lock()
		written[string(p)] = true
		writtenMu.Unlock()
		f.Write(p)
	}
	close(stop)
	wg.Wait()

	if badFrame != "" {
		t.Fatalf("reader observed a frame never written: %q", badFrame)
	}
}

func TestSeqLockFrameDataSize(t *testing.T) {
	f := newTestSeqLockFrame(128)
	if f.DataSize() != 128 {
		t.Fatalf("DataSize() = %d, want 128", f.DataSize())
	}
}
