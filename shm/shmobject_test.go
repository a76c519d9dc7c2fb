package shm

import (
	"testing"

	"github.com/AlephTX/venom/verrors"
)

func TestShmObjectCreateAndOpen(t *testing.T) {
	name := "test_create_open"
	owner, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer owner.Destroy()

	if !owner.IsOwner() {
		t.Fatal("Create() handle is not flagged as owner")
	}
	if len(owner.Bytes()) != 4096 {
		t.Fatalf("Bytes() len = %d, want 4096", len(owner.Bytes()))
	}

	peer, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer peer.Destroy()

	if peer.IsOwner() {
		t.Fatal("Open() handle is flagged as owner")
	}

	owner.Bytes()[0] = 0xAB
	if peer.Bytes()[0] != 0xAB {
		t.Fatal("writes through the owning handle are not visible to an opening handle")
	}
}

func TestShmObjectCreateIsIdempotent(t *testing.T) {
	name := "test_idempotent_create"
	first, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create #1: %v", err)
	}
	defer first.Destroy()

	first.Bytes()[10] = 0x42

	second, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create #2 (idempotent recreate): %v", err)
	}
	defer second.Destroy()

	if second.IsOwner() {
		t.Fatal("second Create() on an already-existing object claimed ownership")
	}
	if second.Bytes()[10] != 0x42 {
		t.Fatal("idempotent Create() did not attach to the existing region's contents")
	}
}

func TestShmObjectNamespaceTooLong(t *testing.T) {
	long := make([]byte, MaxNameLen)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Create(string(long), 4096)
	if !verrors.Is(err, verrors.KindNamespaceTooLong) {
		t.Fatalf("Create(overlong name): err = %v, want KindNamespaceTooLong", err)
	}
}

func TestShmObjectOpenMissing(t *testing.T) {
	_, err := Open("test_never_created_12345")
	if !verrors.Is(err, verrors.KindShmOpen) {
		t.Fatalf("Open(missing): err = %v, want KindShmOpen", err)
	}
}
