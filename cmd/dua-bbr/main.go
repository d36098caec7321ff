// Command dua-bbr runs a Backbone Router registration server for Domain
// Unicast Addresses.
//
// Usage:
//
//	dua-bbr [flags]
//
// Flags:
//
//	-listen string     UDP registration endpoint (default ":61631")
//	-network string    Thread network name (default "OpenHouse")
//	-seq int           Initial service sequence number (default 1)
//	-rereg int         Re-registration delay in seconds (default 300)
//	-mlr int           Multicast listener timeout in seconds (default 3600)
//	-advertise         Announce the service over mDNS (default true)
//	-interface string  Restrict the announcement to one interface
//	-event-log string  CBOR event capture file
//
// The interactive prompt can bump the sequence number, force response
// statuses and push duplicate notifications, to exercise devices.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/service"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

func main() {
	var (
		listen    = flag.String("listen", ":61631", "UDP registration endpoint")
		network   = flag.String("network", "OpenHouse", "Thread network name")
		seq       = flag.Uint("seq", 1, "initial service sequence number (0-255)")
		rereg     = flag.Uint("rereg", 300, "re-registration delay in seconds")
		mlr       = flag.Uint("mlr", 3600, "multicast listener timeout in seconds")
		advertise = flag.Bool("advertise", true, "announce the service over mDNS")
		iface     = flag.String("interface", "", "restrict the announcement to one interface")
		eventLog  = flag.String("event-log", "", "CBOR event capture file")
	)
	flag.Parse()

	logger := log.Logger(log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	if *eventLog != "" {
		capture, err := log.NewFileLogger(*eventLog)
		if err != nil {
			stdlog.Fatalf("Failed to open event log: %v", err)
		}
		defer capture.Close()
		logger = log.NewMultiLogger(logger, capture)
	}

	svc, err := service.NewBackboneService(service.BackboneConfig{
		ListenAddress:       *listen,
		NetworkName:         *network,
		SequenceNumber:      uint8(*seq),
		ReregistrationDelay: uint16(*rereg),
		MlrTimeout:          uint32(*mlr),
		Advertise:           *advertise,
		AdvertiseInterface:  *iface,
		Logger:              logger,
	})
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	if err := svc.Start(); err != nil {
		stdlog.Fatalf("Failed to start: %v", err)
	}
	defer func() { _ = svc.Stop() }()

	stdlog.Printf("Backbone Router serving %q on %s (seq %d)", *network, svc.Addr(), svc.SequenceNumber())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runInteractive(ctx, cancel, svc)
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, svc *service.BackboneService) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bbr> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		stdlog.Fatalf("Failed to create readline: %v", err)
	}
	defer rl.Close()

	printHelp(rl)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			cancel()
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "help", "?":
			printHelp(rl)

		case "status", "s":
			info := svc.ServiceInfo()
			fmt.Fprintf(rl.Stdout(), "Network:  %s\nSequence: %d\nRereg:    %ds\nEntries:  %d\n",
				info.NetworkName, info.SequenceNumber, info.ReregistrationDelay, svc.Registry().Len())

		case "list", "l":
			entries := svc.Registry().Entries(time.Now())
			if len(entries) == 0 {
				fmt.Fprintln(rl.Stdout(), "  (no registrations)")
				continue
			}
			for _, e := range entries {
				fmt.Fprintf(rl.Stdout(), "  %s  iid=%s  age=%s\n",
					e.Target, e.MeshLocalIID, time.Since(e.UpdatedAt).Round(time.Second))
			}

		case "bump":
			fmt.Fprintf(rl.Stdout(), "Sequence now %d; devices must re-register\n", svc.BumpSequence())

		case "force":
			if len(parts) < 2 {
				fmt.Fprintln(rl.Stdout(), "Usage: force dup|notprimary|notready|invalid")
				continue
			}
			status, ok := parseStatus(parts[1])
			if !ok {
				fmt.Fprintf(rl.Stdout(), "Unknown status: %s\n", parts[1])
				continue
			}
			svc.ForceNextStatus(status)
			fmt.Fprintf(rl.Stdout(), "Next request will be answered %s\n", status)

		case "dup":
			if len(parts) < 2 {
				fmt.Fprintln(rl.Stdout(), "Usage: dup <ipv6-address>")
				continue
			}
			target, err := ip6.ParseAddress(parts[1])
			if err != nil {
				fmt.Fprintf(rl.Stdout(), "Invalid address: %v\n", err)
				continue
			}
			if err := svc.NotifyDuplicate(target); err != nil {
				fmt.Fprintf(rl.Stdout(), "Error: %v\n", err)
				continue
			}
			fmt.Fprintf(rl.Stdout(), "Duplicate notification pushed for %s\n", target)

		case "quit", "exit", "q":
			cancel()
			return

		default:
			fmt.Fprintf(rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", parts[0])
		}
	}
}

func printHelp(rl *readline.Instance) {
	fmt.Fprintln(rl.Stdout(), `
Backbone Router Commands:
  status          - Show service data and registry size
  list            - List live registrations
  bump            - Increment the sequence number (forces re-registration)
  force <status>  - Answer the next request with dup|notprimary|notready|invalid
  dup <addr>      - Evict a registration and push a duplicate notification
  help            - Show this help
  quit            - Exit`)
}

func parseStatus(s string) (wire.DuaStatus, bool) {
	switch strings.ToLower(s) {
	case "dup", "duplicate":
		return wire.StatusDuplicate, true
	case "notprimary":
		return wire.StatusNotPrimary, true
	case "notready":
		return wire.StatusNotReady, true
	case "invalid":
		return wire.StatusInvalidRequest, true
	default:
		return 0, false
	}
}
