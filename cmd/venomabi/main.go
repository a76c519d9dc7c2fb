// Command venomabi is the cgo-compatible C surface for embedding venom
// channels from other languages, built with `go build -buildmode=c-shared`.
//
// Grounded on the teacher's handle-wrapping style (shm.Matrix wraps a single
// *ShmMarketState behind a Go struct) generalized one step further: since a
// C caller can only hold an opaque integer, not a Go pointer, each Create/
// Connect call registers its *daemon.Daemon or *shell.Shell in a package-
// level handle table and hands back the table index instead of the pointer
// itself (cgo forbids passing Go pointers to C in a way that outlives the
// call, per the cgo pointer-passing rules).
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	uint64_t data_size;
	uint64_t cmd_slots;
	uint64_t max_clients;
} venom_channel_config;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/AlephTX/venom/daemon"
	"github.com/AlephTX/venom/shell"
	"github.com/AlephTX/venom/shm"
)

var (
	mu          sync.Mutex
	nextHandle  uintptr = 1
	daemons             = map[uintptr]*daemon.Daemon{}
	shells              = map[uintptr]*shell.Shell{}
)

func registerDaemon(d *daemon.Daemon) C.uintptr_t {
	mu.Lock()
	defer mu.Unlock()
	h := nextHandle
	nextHandle++
	daemons[h] = d
	return C.uintptr_t(h)
}

func registerShell(s *shell.Shell) C.uintptr_t {
	mu.Lock()
	defer mu.Unlock()
	h := nextHandle
	nextHandle++
	shells[h] = s
	return C.uintptr_t(h)
}

func lookupDaemon(h C.uintptr_t) *daemon.Daemon {
	mu.Lock()
	defer mu.Unlock()
	return daemons[uintptr(h)]
}

func lookupShell(h C.uintptr_t) *shell.Shell {
	mu.Lock()
	defer mu.Unlock()
	return shells[uintptr(h)]
}

//export daemon_create
func daemon_create(nameCstr *C.char, cfg C.venom_channel_config) C.uintptr_t {
	name := C.GoString(nameCstr)
	d, err := daemon.Create(name, shm.ChannelConfig{
		DataSize:   uint64(cfg.data_size),
		CmdSlots:   uint64(cfg.cmd_slots),
		MaxClients: uint64(cfg.max_clients),
	})
	if err != nil {
		return 0
	}
	return registerDaemon(d)
}

//export daemon_destroy
func daemon_destroy(h C.uintptr_t) {
	mu.Lock()
	d := daemons[uintptr(h)]
	delete(daemons, uintptr(h))
	mu.Unlock()
	if d != nil {
		_ = d.Destroy()
	}
}

//export daemon_write_data
func daemon_write_data(h C.uintptr_t, ptr *C.char, length C.int) {
	d := lookupDaemon(h)
	if d == nil {
		return
	}
	d.WriteData(C.GoBytes(unsafe.Pointer(ptr), length))
}

//export daemon_try_recv_command
func daemon_try_recv_command(h C.uintptr_t, buf *C.char, maxLen C.int, outClientID *C.uint32_t) C.int {
	d := lookupDaemon(h)
	if d == nil {
		return 0
	}
	cmd, ok := d.TryRecvCommand()
	if !ok {
		return 0
	}
	return copyOut(cmd, buf, maxLen, outClientID)
}

//export daemon_recv_command
func daemon_recv_command(h C.uintptr_t, buf *C.char, maxLen C.int, outClientID *C.uint32_t) C.int {
	d := lookupDaemon(h)
	if d == nil {
		return 0
	}
	cmd := d.RecvCommand()
	return copyOut(cmd, buf, maxLen, outClientID)
}

func copyOut(cmd shm.PoppedCommand, buf *C.char, maxLen C.int, outClientID *C.uint32_t) C.int {
	n := len(cmd.Data)
	if n > int(maxLen) {
		n = int(maxLen)
	}
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), n)
		copy(dst, cmd.Data[:n])
	}
	if outClientID != nil {
		*outClientID = C.uint32_t(cmd.ClientID)
	}
	return C.int(n)
}

//export shell_connect
func shell_connect(nameCstr *C.char) C.uintptr_t {
	name := C.GoString(nameCstr)
	s, err := shell.Connect(name)
	if err != nil {
		return 0
	}
	return registerShell(s)
}

//export shell_destroy
func shell_destroy(h C.uintptr_t) {
	mu.Lock()
	s := shells[uintptr(h)]
	delete(shells, uintptr(h))
	mu.Unlock()
	if s != nil {
		_ = s.Destroy()
	}
}

//export shell_read_data
func shell_read_data(h C.uintptr_t, buf *C.char, maxLen C.int) C.int {
	s := lookupShell(h)
	if s == nil {
		return 0
	}
	out := make([]byte, maxLen)
	n := s.ReadDataWithLen(out)
	if n > int(maxLen) {
		n = int(maxLen)
	}
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), n)
		copy(dst, out[:n])
	}
	return C.int(n)
}

//export shell_send_command
func shell_send_command(h C.uintptr_t, ptr *C.char, length C.int) C.int {
	s := lookupShell(h)
	if s == nil {
		return 0
	}
	cmd := C.GoBytes(unsafe.Pointer(ptr), length)
	if err := s.TrySendCommand(cmd); err != nil {
		return 0
	}
	return 1
}

//export shell_id
func shell_id(h C.uintptr_t) C.uint32_t {
	s := lookupShell(h)
	if s == nil {
		return 0
	}
	return C.uint32_t(s.ClientID())
}

func main() {}
