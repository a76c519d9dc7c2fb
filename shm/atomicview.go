package shm

import (
	"sync/atomic"
	"unsafe"
)

// The shared region is a plain []byte obtained from mmap; these helpers
// give atomic access to fixed fields within it the way the teacher's
// shm.Matrix.WriteBBO reaches into its mmap'd slice via unsafe.Pointer
// casts, generalized from the teacher's ad hoc per-field casts to a small
// set of reusable accessors.

func u64At(data []byte, offset uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(&data[offset]))
}

func u32At(data []byte, offset uint64) *uint32 {
	return (*uint32)(unsafe.Pointer(&data[offset]))
}

func loadU64(data []byte, offset uint64) uint64 {
	return atomic.LoadUint64(u64At(data, offset))
}

func storeU64(data []byte, offset uint64, v uint64) {
	atomic.StoreUint64(u64At(data, offset), v)
}

func addU64(data []byte, offset uint64, delta uint64) uint64 {
	return atomic.AddUint64(u64At(data, offset), delta)
}

func loadU32(data []byte, offset uint64) uint32 {
	return atomic.LoadUint32(u32At(data, offset))
}

func addU32(data []byte, offset uint64, delta uint32) uint32 {
	return atomic.AddUint32(u32At(data, offset), delta)
}

func storeU32(data []byte, offset uint64, v uint32) {
	atomic.StoreUint32(u32At(data, offset), v)
}

func casU32(data []byte, offset uint64, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(u32At(data, offset), old, new)
}
