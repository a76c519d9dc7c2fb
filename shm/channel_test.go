package shm

import (
	"bytes"
	"testing"

	"github.com/AlephTX/venom/verrors"
)

func testChannelConfig() ChannelConfig {
	return ChannelConfig{DataSize: 1024, CmdSlots: 16, MaxClients: 4}
}

func TestChannelSmoke(t *testing.T) {
	ch, err := CreateChannel("test_smoke", testChannelConfig())
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	defer ch.Destroy()

	peer, clientID, err := OpenChannel("test_smoke")
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	defer peer.Destroy()

	if clientID != 1 {
		t.Fatalf("first OpenChannel() client id = %d, want 1", clientID)
	}

	ch.Data().WriteWithLen([]byte("hello"))

	buf := make([]byte, 64)
	n := peer.Data().ReadWithLen(buf)
	if n != 5 || !bytes.Equal(buf[:5], []byte("hello")) {
		t.Fatalf("ReadWithLen() = (%d, %q), want (5, %q)", n, buf[:n], "hello")
	}
}

func TestChannelHandshakeAssignsSequentialClientIDs(t *testing.T) {
	ch, err := CreateChannel("test_handshake", testChannelConfig())
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	defer ch.Destroy()

	const n = 5
	for i := 1; i <= n; i++ {
		peer, id, err := OpenChannel("test_handshake")
		if err != nil {
			t.Fatalf("OpenChannel #%d: %v", i, err)
		}
		defer peer.Destroy()
		if id != uint32(i) {
			t.Fatalf("OpenChannel #%d: client id = %d, want %d", i, id, i)
		}
	}
}

func TestChannelInvalidMagic(t *testing.T) {
	obj, err := Create("test_invalid_magic", 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer obj.Destroy()
	// region is zero-initialized: magic = 0x00000000

	_, _, err = OpenChannel("test_invalid_magic")
	var verr *verrors.Error
	if !verrors.Is(err, verrors.KindInvalidMagic) {
		t.Fatalf("OpenChannel(zeroed region): err = %v, want KindInvalidMagic", err)
	}
	if ok := asError(err, &verr); ok {
		if verr.Expected != uint64(Magic) || verr.Got != 0 {
			t.Fatalf("OpenChannel: expected=0x%x got=0x%x, want expected=0x%x got=0x0", verr.Expected, verr.Got, Magic)
		}
	}
}

func TestChannelCommandsRoundTrip(t *testing.T) {
	ch, err := CreateChannel("test_commands", testChannelConfig())
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	defer ch.Destroy()

	if err := ch.Commands().Push(3, []byte("ping")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	cmd, ok := ch.Commands().TryPop()
	if !ok {
		t.Fatal("TryPop() failed after Push")
	}
	if cmd.ClientID != 3 || string(cmd.Data) != "ping" {
		t.Fatalf("TryPop() = %+v, want ClientID=3 Data=ping", cmd)
	}
}

func asError(err error, target **verrors.Error) bool {
	e, ok := err.(*verrors.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
