// Package log provides structured event logging for the DUA manager.
//
// The manager reports registration attempts, state transitions and errors
// as typed events through the Logger interface. Applications choose the
// sink: discard (NoopLogger), console via slog (SlogAdapter), a CBOR
// capture file for offline analysis (FileLogger), or several at once
// (MultiLogger).
//
// # Event Capture
//
// FileLogger appends events to a file as a CBOR stream with integer keys;
// Reader replays such a file with optional filtering. The capture format
// uses nanosecond-precision timestamps so interleaved registration traffic
// can be ordered precisely.
package log
