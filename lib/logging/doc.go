// Package logging wires the standard library's slog into the repo. Init
// installs the global handler once at startup, For hands out component
// tagged loggers that follow later changes to the default, and
// CaptureForTest lets tests assert on emitted records.
package logging
