package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/AlephTX/venom/shell"
)

func main() {
	name := flag.StringP("channel", "n", "", "channel name to attach to (required)")
	bufSize := flag.IntP("buf-size", "b", 65536, "read buffer size in bytes")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: venomsh -n <channel> [-b bufsize]")
		os.Exit(1)
	}

	sh, err := shell.Connect(*name)
	if err != nil {
		log.Fatalf("connect %s: %v", *name, err)
	}
	defer sh.Destroy()

	log.Printf("attached to %s as client %d", *name, sh.ClientID())

	buf := make([]byte, *bufSize)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("enter a command, or 'read' to read the current data frame")

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if line == "read" {
			n := sh.ReadDataWithLen(buf)
			fmt.Printf("[%d bytes] %q\n", n, buf[:n])
			continue
		}

		if err := sh.SendCommand([]byte(line)); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			continue
		}
		fmt.Println("sent.")
	}
}
