// Package interactive provides the interactive command-line interface
// for the dua-device command.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/thread-protocol/dua-go/pkg/backbone"
	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/meshtable"
	"github.com/thread-protocol/dua-go/pkg/service"
)

// Device handles interactive mode for dua-device.
type Device struct {
	svc *service.DeviceService
	rl  *readline.Instance
}

// New creates a new interactive device handler.
func New(svc *service.DeviceService) (*Device, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dua> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Device{svc: svc, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (d *Device) Stdout() io.Writer {
	return d.rl.Stdout()
}

// Run starts the interactive command loop.
func (d *Device) Run(ctx context.Context, cancel context.CancelFunc) {
	defer d.rl.Close()

	d.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := d.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(d.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			d.printHelp()

		case "status", "s":
			d.cmdStatus()

		case "prefix":
			d.cmdPrefix(args)

		case "bbr":
			d.cmdBbr(args)

		case "fixed":
			d.cmdFixed(args)

		case "register":
			d.svc.Manager().PerformNextRegistration()

		case "child":
			d.cmdChild(args)

		case "addrs", "a":
			d.cmdAddrs()

		case "quit", "exit", "q":
			fmt.Fprintln(d.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(d.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (d *Device) printHelp() {
	fmt.Fprintln(d.rl.Stdout(), `
DUA Device Commands:
  Status:
    status                   - Show registration state and address
    addrs                    - List interface addresses

  Topology Simulation:
    prefix up <prefix/len>   - Announce a Domain Prefix
    prefix down              - Withdraw the Domain Prefix
    bbr up [seq] [rereg-s]   - Announce a Primary Backbone Router
    bbr down                 - Withdraw the Primary Backbone Router
    bbr rereg                - Sequence bump: force re-registration

  Address Control:
    fixed <16-hex-iid>       - Fix the Interface Identifier
    fixed clear              - Revert to derived Interface Identifiers
    register                 - Trigger the next registration now

  Proxy (when -children > 0):
    child add <idx> <iid>    - Attach a child (16 hex digits)
    child dua <idx> <addr>   - Child announces a DUA
    child drop <idx>         - Child withdraws its DUA
    child detach <idx>       - Detach a child
    child list               - Show the child table

  General:
    help                     - Show this help
    quit                     - Exit`)
}

func (d *Device) cmdStatus() {
	m := d.svc.Manager()
	out := d.rl.Stdout()

	fmt.Fprintf(out, "State:       %s\n", m.State())
	if addr, ok := m.GetDomainUnicastAddress(); ok {
		fmt.Fprintf(out, "Address:     %s\n", addr)
	} else {
		fmt.Fprintln(out, "Address:     (none)")
	}
	fmt.Fprintf(out, "DAD counter: %d\n", m.DadCounter())
	if iid, ok := m.GetFixedDuaInterfaceIdentifier(); ok {
		fmt.Fprintf(out, "Fixed IID:   %s\n", iid)
	}
	if prefix, ok := d.svc.Notifier().DomainPrefix(); ok {
		fmt.Fprintf(out, "Prefix:      %s\n", prefix)
	}
	if config, ok := d.svc.Notifier().Primary(); ok {
		fmt.Fprintf(out, "Primary BBR: %s\n", config)
	}
	if p := d.svc.Proxy(); p != nil {
		fmt.Fprintf(out, "Proxy:       pending=%v\n", p.HasPendingRegistrations())
	}
}

func (d *Device) cmdPrefix(args []string) {
	out := d.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: prefix up <prefix/len> | prefix down")
		return
	}

	switch args[0] {
	case "up":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: prefix up <prefix/len>")
			return
		}
		prefix, err := parsePrefix(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid prefix: %v\n", err)
			return
		}
		d.svc.Notifier().NotifyDomainPrefix(backbone.PrefixAdded, prefix)
		fmt.Fprintf(out, "Domain Prefix announced: %s\n", prefix)

	case "down":
		d.svc.Notifier().NotifyDomainPrefix(backbone.PrefixRemoved, ip6.Prefix{})
		fmt.Fprintln(out, "Domain Prefix withdrawn")

	default:
		fmt.Fprintln(out, "Usage: prefix up <prefix/len> | prefix down")
	}
}

func (d *Device) cmdBbr(args []string) {
	out := d.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: bbr up [seq] [rereg-s] | bbr down | bbr rereg")
		return
	}

	switch args[0] {
	case "up":
		config := backbone.Config{SequenceNumber: 1, ReregistrationDelay: 300}
		if len(args) > 1 {
			if n, err := strconv.ParseUint(args[1], 10, 8); err == nil {
				config.SequenceNumber = uint8(n)
			}
		}
		if len(args) > 2 {
			if n, err := strconv.ParseUint(args[2], 10, 16); err == nil {
				config.ReregistrationDelay = uint16(n)
			}
		}
		d.svc.Notifier().NotifyPrimary(backbone.StateAdded, config)
		fmt.Fprintf(out, "Primary announced: %s\n", config)

	case "down":
		d.svc.Notifier().NotifyPrimary(backbone.StateRemoved, backbone.Config{})
		fmt.Fprintln(out, "Primary withdrawn")

	case "rereg":
		config, ok := d.svc.Notifier().Primary()
		if !ok {
			fmt.Fprintln(out, "No Primary known")
			return
		}
		config.SequenceNumber++
		d.svc.Notifier().NotifyPrimary(backbone.StateToTriggerRereg, config)
		fmt.Fprintf(out, "Sequence bumped: %s\n", config)

	default:
		fmt.Fprintln(out, "Usage: bbr up [seq] [rereg-s] | bbr down | bbr rereg")
	}
}

func (d *Device) cmdFixed(args []string) {
	out := d.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: fixed <16-hex-iid> | fixed clear")
		return
	}

	if args[0] == "clear" {
		d.svc.Manager().ClearFixedDuaInterfaceIdentifier()
		fmt.Fprintln(out, "Fixed IID cleared")
		return
	}

	iid, err := ip6.ParseInterfaceIdentifier(args[0])
	if err != nil {
		fmt.Fprintf(out, "Invalid IID: %v\n", err)
		return
	}
	if err := d.svc.Manager().SetFixedDuaInterfaceIdentifier(iid); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Fixed IID set: %s\n", iid)
}

func (d *Device) cmdChild(args []string) {
	out := d.rl.Stdout()
	table := d.svc.Children()
	if table == nil {
		fmt.Fprintln(out, "Proxy registration is disabled (start with -children > 0)")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: child add|dua|drop|detach|list ...")
		return
	}

	switch args[0] {
	case "list":
		count := 0
		for i := 0; i < table.Capacity(); i++ {
			child := table.Get(i)
			if child == nil {
				continue
			}
			count++
			dua := "(none)"
			if child.HasDua {
				dua = child.DomainUnicastAddress.String()
			}
			registered := d.svc.Proxy().IsChildRegistered(i)
			fmt.Fprintf(out, "  [%d] iid=%s dua=%s registered=%v\n", i, child.MeshLocalIID, dua, registered)
		}
		if count == 0 {
			fmt.Fprintln(out, "  (no children)")
		}

	case "add":
		if len(args) < 3 {
			fmt.Fprintln(out, "Usage: child add <idx> <16-hex-iid>")
			return
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid index: %v\n", err)
			return
		}
		iid, err := ip6.ParseInterfaceIdentifier(args[2])
		if err != nil {
			fmt.Fprintf(out, "Invalid IID: %v\n", err)
			return
		}
		if _, err := table.Attach(idx, iid); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Child %d attached\n", idx)

	case "dua":
		if len(args) < 3 {
			fmt.Fprintln(out, "Usage: child dua <idx> <ipv6-address>")
			return
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid index: %v\n", err)
			return
		}
		addr, err := ip6.ParseAddress(args[2])
		if err != nil {
			fmt.Fprintf(out, "Invalid address: %v\n", err)
			return
		}
		if err := d.svc.Manager().UpdateChildDomainUnicastAddress(idx, meshtable.DuaAdded, addr); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Child %d announced %s\n", idx, addr)

	case "drop":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: child drop <idx>")
			return
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid index: %v\n", err)
			return
		}
		if err := d.svc.Manager().UpdateChildDomainUnicastAddress(idx, meshtable.DuaRemoved, ip6.Address{}); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Child %d withdrew its DUA\n", idx)

	case "detach":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: child detach <idx>")
			return
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(out, "Invalid index: %v\n", err)
			return
		}
		_ = d.svc.Manager().UpdateChildDomainUnicastAddress(idx, meshtable.DuaRemoved, ip6.Address{})
		if err := table.Detach(idx); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Child %d detached\n", idx)

	default:
		fmt.Fprintln(out, "Usage: child add|dua|drop|detach|list ...")
	}
}

func (d *Device) cmdAddrs() {
	out := d.rl.Stdout()
	addrs := d.svc.Addresses().Addresses()
	if len(addrs) == 0 {
		fmt.Fprintln(out, "  (no addresses)")
		return
	}
	for _, addr := range addrs {
		fmt.Fprintf(out, "  %s\n", addr)
	}
}

// parsePrefix parses "prefix/length" CIDR notation.
func parsePrefix(s string) (ip6.Prefix, error) {
	addrPart, lenPart, ok := strings.Cut(s, "/")
	if !ok {
		return ip6.Prefix{}, fmt.Errorf("want prefix/length, got %q", s)
	}
	addr, err := ip6.ParseAddress(addrPart)
	if err != nil {
		return ip6.Prefix{}, err
	}
	length, err := strconv.ParseUint(lenPart, 10, 8)
	if err != nil || length == 0 || length > 64 {
		return ip6.Prefix{}, fmt.Errorf("invalid prefix length %q", lenPart)
	}
	return ip6.Prefix{Address: addr, Length: uint8(length)}, nil
}
