package shell

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlephTX/venom/daemon"
	"github.com/AlephTX/venom/shm"
	"github.com/AlephTX/venom/verrors"
)

func TestShellTrySendCommandBackpressure(t *testing.T) {
	d, err := daemon.Create("test_shell_backpressure", shm.ChannelConfig{
		DataSize: 64, CmdSlots: 2, MaxClients: 4,
	})
	require.NoError(t, err)
	defer d.Destroy()

	sh, err := Connect("test_shell_backpressure")
	require.NoError(t, err)
	defer sh.Destroy()

	require.NoError(t, sh.TrySendCommand([]byte("a")))
	require.NoError(t, sh.TrySendCommand([]byte("b")))

	err = sh.TrySendCommand([]byte("c"))
	require.True(t, verrors.Is(err, verrors.KindQueueFull), "err = %v, want KindQueueFull", err)
}

func TestShellMultipleClientsGetDistinctIDs(t *testing.T) {
	d, err := daemon.Create("test_shell_multi_client", shm.ChannelConfig{
		DataSize: 64, CmdSlots: 4, MaxClients: 8,
	})
	require.NoError(t, err)
	defer d.Destroy()

	first, err := Connect("test_shell_multi_client")
	require.NoError(t, err)
	defer first.Destroy()

	second, err := Connect("test_shell_multi_client")
	require.NoError(t, err)
	defer second.Destroy()

	require.NotEqual(t, first.ClientID(), second.ClientID())
}

func TestShellConnectRejectsUnknownChannel(t *testing.T) {
	_, err := Connect("test_shell_never_created_xyz")
	require.True(t, verrors.Is(err, verrors.KindShmOpen), "err = %v, want KindShmOpen", err)
}
