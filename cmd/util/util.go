package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/store/bstore"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the store selection flags shared by all kv commands
func SetupStoreFlags(cmd *cobra.Command) {
	key := "path"
	cmd.PersistentFlags().String(key, "bkv.db", WrapString("Path of the store file (a directory for the badger engine)"))

	key = "mode"
	cmd.PersistentFlags().String(key, "c", WrapString("Open mode: r (read-only), w (read-write), c (create if missing), n (truncate)"))

	key = "engine"
	cmd.PersistentFlags().String(key, "", WrapString("Storage engine: bolt, badger or flat. By default existing stores are auto-detected and new stores use bolt"))

	key = "queue-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Bound on queued operations, 0 means unbounded. When the bound is hit new operations fail fast with a busy error"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("Timeout in seconds for a single store operation"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("bkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStorePath reads the configured store path
func GetStorePath() string {
	return viper.GetString("path")
}

// GetMode parses the configured open mode
func GetMode() (db.Mode, error) {
	return db.ParseMode(viper.GetString("mode"))
}

// GetStoreOptions assembles bridged store options from configuration
func GetStoreOptions() (*bstore.Options, error) {
	opts := bstore.DefaultOptions()
	opts.QueueSize = viper.GetInt("queue-size")

	switch engine := viper.GetString("engine"); engine {
	case "":
		// auto-detect
	case string(db.ImplBolt):
		opts.Engine = db.ImplBolt
	case string(db.ImplBadger):
		opts.Engine = db.ImplBadger
	case string(db.ImplFlat):
		opts.Engine = db.ImplFlat
	default:
		return nil, fmt.Errorf("invalid engine %q (expected bolt, badger or flat)", engine)
	}

	return opts, nil
}

// GetTimeout reads the configured per-operation timeout
func GetTimeout() time.Duration {
	return time.Duration(viper.GetInt("timeout")) * time.Second
}

// ParseByteSize parses human-readable sizes like "100KB" or "1MiB"
func ParseByteSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// FormatByteSize renders a byte count human-readable
func FormatByteSize(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(n))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
