package shm

import (
	"fmt"

	"github.com/AlephTX/venom/verrors"
	"golang.org/x/sys/unix"
)

// ShmObject is a named, fixed-size, process-shared byte region mapped
// read/write into the caller's address space.
//
// Grounded on the teacher's shm.NewMatrix/shm.NewRingBuffer, which open a
// file under /dev/shm and mmap it MAP_SHARED. Generalized here to use
// golang.org/x/sys/unix instead of syscall (portable across the platforms
// x/sys/unix targets) and to create-exclusive-first rather than O_TRUNC, so
// that re-running a daemon against an already-attached channel does not
// clobber memory shells are reading.
type ShmObject struct {
	name    string // logical name, before prefixing
	path    string // effective /dev/shm path
	data    []byte
	isOwner bool
}

// effectivePath validates and builds the /dev/shm path for name.
func effectivePath(name string) (string, error) {
	full := NamePrefix + name
	if len(full) > MaxNameLen {
		return "", &verrors.Error{
			Kind: verrors.KindNamespaceTooLong,
			Op:   "shm.effectivePath",
			Name: name,
			Msg:  fmt.Sprintf("prefixed name length %d exceeds %d", len(full), MaxNameLen),
		}
	}
	return "/dev/shm" + full, nil
}

// Create creates a named shared region of exactly size bytes.
//
// Create-exclusive is attempted first; if the object already exists, it is
// opened instead (idempotent recreate, so daemon restarts attach to a
// still-live region rather than failing). Size is set exactly once, on
// first creation, and the region is zero-initialized by the kernel.
func Create(name string, size uint64) (*ShmObject, error) {
	path, err := effectivePath(name)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0644)
	owner := true
	if err != nil {
		if err != unix.EEXIST {
			return nil, verrors.Wrap(verrors.KindShmCreate, "shm.Create", name, err)
		}
		owner = false
		fd, err = unix.Open(path, unix.O_RDWR, 0644)
		if err != nil {
			return nil, verrors.Wrap(verrors.KindShmCreate, "shm.Create", name, err)
		}
	}
	defer unix.Close(fd)

	if owner {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			return nil, verrors.Wrap(verrors.KindTruncate, "shm.Create", name, err)
		}
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindMmap, "shm.Create", name, err)
	}

	return &ShmObject{name: name, path: path, data: data, isOwner: owner}, nil
}

// Open opens an existing named shared region. Size is read from the
// object's current length.
func Open(name string) (*ShmObject, error) {
	path, err := effectivePath(name)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_RDWR, 0644)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindShmOpen, "shm.Open", name, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, verrors.Wrap(verrors.KindShmOpen, "shm.Open", name, err)
	}
	size := stat.Size

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindMmap, "shm.Open", name, err)
	}

	return &ShmObject{name: name, path: path, data: data, isOwner: false}, nil
}

// Bytes returns the mapped region.
func (o *ShmObject) Bytes() []byte { return o.data }

// IsOwner reports whether this handle created the region (and so will
// unlink it on Destroy).
func (o *ShmObject) IsOwner() bool { return o.isOwner }

// Name returns the logical (unprefixed) name.
func (o *ShmObject) Name() string { return o.name }

// Destroy unmaps the region. If this handle owns the region, the name is
// also unlinked; the backing memory persists until every mapping, owning or
// not, is dropped.
func (o *ShmObject) Destroy() error {
	if o.data == nil {
		return nil
	}
	err := unix.Munmap(o.data)
	o.data = nil
	if err != nil {
		return verrors.Wrap(verrors.KindMmap, "shm.Destroy", o.name, err)
	}
	if o.isOwner {
		if err := unix.Unlink(o.path); err != nil && err != unix.ENOENT {
			return verrors.Wrap(verrors.KindShmCreate, "shm.Destroy", o.name, err)
		}
	}
	return nil
}
