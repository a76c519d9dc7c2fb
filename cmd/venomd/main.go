package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/AlephTX/venom/config"
	"github.com/AlephTX/venom/daemon"
	"github.com/AlephTX/venom/shm"
)

func main() {
	cfgPath := flag.StringP("config", "c", "venom.toml", "path to venom.toml")
	flag.Parse()

	if p := os.Getenv("VENOM_CONFIG"); p != "" {
		*cfgPath = p
	}

	log.Println("venomd starting...")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config %s: %v", *cfgPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup

	for name, chCfg := range cfg.Channels {
		if !chCfg.Enabled {
			continue
		}

		name, chCfg := name, chCfg
		wg.Add(1)
		go func() {
			defer wg.Done()
			runChannel(ctx, name, chCfg)
		}()
	}

	wg.Wait()
	log.Println("venomd stopped.")
}

func runChannel(ctx context.Context, name string, chCfg config.ChannelConfig) {
	shmName := name
	if override := os.Getenv("VENOM_SHM_NAME_" + name); override != "" {
		shmName = override
	}

	d, err := daemon.Create(shmName, chCfg.ShmConfig())
	if err != nil {
		log.Printf("channel %s: create: %v", name, err)
		return
	}
	defer d.Destroy()

	log.Printf("channel %s: /dev/shm/venom_%s ready", name, shmName)

	// daemon.Run spins forever with no cancellation hook (its blocking
	// variants are infinite by design); polling TryRecvCommand instead lets
	// this loop honor ctx the way the teacher's exchange workers honor
	// ctx.Done() inside their own read loops.
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd, ok := d.TryRecvCommand()
		if !ok {
			runtime.Gosched()
			continue
		}
		if string(cmd.Data) == "__SHUTDOWN__" {
			return
		}
		d.WriteDataWithLen(echoResponse(cmd))
	}
}

func echoResponse(cmd shm.PoppedCommand) []byte {
	return cmd.Data
}
