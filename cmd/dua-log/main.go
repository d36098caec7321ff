// Command dua-log views and analyzes DUA event capture files.
//
// Capture files are created by running dua-device or dua-bbr with the
// -event-log flag; they hold a CBOR stream of registration events.
//
// Usage:
//
//	dua-log <command> [flags] <file.dlog>
//
// Commands:
//
//	view     View events in human-readable format
//	export   Export events as JSON lines
//	stats    Show event statistics
//
// Examples:
//
//	# View all events
//	dua-log view device.dlog
//
//	# View only state transitions
//	dua-log view -category state device.dlog
//
//	# Export to JSONL
//	dua-log export device.dlog > events.jsonl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thread-protocol/dua-go/pkg/log"
)

const usage = `dua-log - DUA Event Log Analyzer

Usage:
  dua-log <command> [flags] <file.dlog>

Commands:
  view     View events in human-readable format
  export   Export events as JSON lines
  stats    Show event statistics

Use "dua-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "view":
		runView(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// parseCategory maps a flag value to an event category filter.
func parseCategory(s string) (*log.Category, error) {
	var c log.Category
	switch s {
	case "":
		return nil, nil
	case "state":
		c = log.CategoryState
	case "registration", "reg":
		c = log.CategoryRegistration
	case "error":
		c = log.CategoryError
	default:
		return nil, fmt.Errorf("unknown category %q (want state, registration or error)", s)
	}
	return &c, nil
}

func loadEvents(fs *flag.FlagSet, category string) []log.Event {
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	cat, err := parseCategory(category)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	events, err := log.ReadEvents(fs.Arg(0), &log.Filter{Category: cat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}
	return events
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	category := fs.String("category", "", "filter by category (state, registration, error)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dua-log view [-category c] <file.dlog>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	for _, event := range loadEvents(fs, *category) {
		fmt.Println(formatEvent(event))
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	category := fs.String("category", "", "filter by category (state, registration, error)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dua-log export [-category c] <file.dlog>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	for _, event := range loadEvents(fs, *category) {
		if err := enc.Encode(exportEvent(event)); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dua-log stats <file.dlog>")
	}
	_ = fs.Parse(args)

	events := loadEvents(fs, "")
	if len(events) == 0 {
		fmt.Println("No events")
		return
	}

	byCategory := make(map[log.Category]int)
	byStatus := make(map[string]int)
	for _, event := range events {
		byCategory[event.Category]++
		if event.Registration != nil && event.Registration.Status != "" {
			byStatus[event.Registration.Status]++
		}
	}

	first, last := events[0].Timestamp, events[len(events)-1].Timestamp
	fmt.Printf("Events:   %d\n", len(events))
	fmt.Printf("Span:     %s .. %s (%s)\n",
		first.Format("15:04:05.000"), last.Format("15:04:05.000"), last.Sub(first).Round(time.Millisecond))
	for _, c := range []log.Category{log.CategoryState, log.CategoryRegistration, log.CategoryError} {
		fmt.Printf("%-13s %d\n", c.String()+":", byCategory[c])
	}
	if len(byStatus) > 0 {
		fmt.Println("Registration outcomes:")
		for status, n := range byStatus {
			fmt.Printf("  %-15s %d\n", status, n)
		}
	}
}

// formatEvent renders one event as a log line.
func formatEvent(event Event) string {
	ts := event.Timestamp.Format("15:04:05.000")
	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		return fmt.Sprintf("%s STATE %s -> %s addr=%s reason=%q",
			ts, sc.OldState, sc.NewState, sc.Address, sc.Reason)
	case event.Registration != nil:
		r := event.Registration
		who := "own"
		if r.ChildIndex >= 0 {
			who = fmt.Sprintf("child[%d]", r.ChildIndex)
		}
		if r.Status == "" {
			return fmt.Sprintf("%s REG   %s request addr=%s token=%s", ts, who, r.Address, r.Token)
		}
		return fmt.Sprintf("%s REG   %s %s addr=%s", ts, who, r.Status, r.Address)
	case event.Error != nil:
		return fmt.Sprintf("%s ERROR op=%s: %s", ts, event.Error.Op, event.Error.Message)
	default:
		return fmt.Sprintf("%s %s", ts, event.Category)
	}
}

// Event aliases the log event for the formatter signature.
type Event = log.Event

// exportRecord is the JSONL export layout.
type exportRecord struct {
	Timestamp string                 `json:"ts"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields"`
}

func exportEvent(event log.Event) exportRecord {
	rec := exportRecord{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Category:  event.Category.String(),
		Fields:    map[string]interface{}{},
	}
	switch {
	case event.StateChange != nil:
		rec.Fields["old_state"] = event.StateChange.OldState
		rec.Fields["new_state"] = event.StateChange.NewState
		rec.Fields["address"] = event.StateChange.Address
		rec.Fields["reason"] = event.StateChange.Reason
	case event.Registration != nil:
		rec.Fields["address"] = event.Registration.Address
		rec.Fields["token"] = event.Registration.Token
		rec.Fields["child_index"] = event.Registration.ChildIndex
		rec.Fields["status"] = event.Registration.Status
	case event.Error != nil:
		rec.Fields["op"] = event.Error.Op
		rec.Fields["error"] = event.Error.Message
	}
	return rec
}
