package db

import "fmt"

// --------------------------------------------------------------------------
// Open Modes
// --------------------------------------------------------------------------

// Mode controls how an engine opens its backing path. The short names
// accepted by ParseMode follow the classic dbm flag letters.
type Mode uint8

const (
	ModeReadOnly  Mode = iota // "r": open existing store for reading only
	ModeReadWrite             // "w": open existing store for reading and writing
	ModeCreate                // "c": open for reading and writing, create if missing
	ModeTruncate              // "n": always create a new, empty store
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeReadWrite:
		return "read-write"
	case ModeCreate:
		return "create"
	case ModeTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Writable reports whether the mode permits mutating operations.
func (m Mode) Writable() bool {
	return m != ModeReadOnly
}

// ParseMode converts a flag string into a Mode. Both the single-letter dbm
// flags ("r", "w", "c", "n") and the long names are accepted.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "read-only", "readonly":
		return ModeReadOnly, nil
	case "w", "read-write", "readwrite":
		return ModeReadWrite, nil
	case "c", "create":
		return ModeCreate, nil
	case "n", "truncate", "new":
		return ModeTruncate, nil
	default:
		return 0, NewError(CodeOpen, fmt.Sprintf("invalid open mode %q", s))
	}
}
