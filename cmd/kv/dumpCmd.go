package kv

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bkv-project/bKV/cmd/util"
	"github.com/bkv-project/bKV/lib/dump"
)

var (
	dumpCmd = &cobra.Command{
		Use:   "dump [file]",
		Short: "Writes all entries to an archive file ('-' for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := dump.ParseFormat(viper.GetString("format"))
			if err != nil {
				return err
			}

			out := os.Stdout
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("cannot create archive: %w", err)
				}
				defer f.Close()
				out = f
			}

			// Archives take as long as they take, so no per-operation
			// timeout here.
			n, err := dump.Dump(context.Background(), kvStore, out, format)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "dumped %d entries\n", n)
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [file]",
		Short: "Loads entries from an archive file ('-' for stdin)",
		Long: util.WrapString("Loads entries from an archive previously written by dump. " +
			"The archive format is detected from its header. Existing keys are overwritten, " +
			"keys not present in the archive are left untouched."),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("cannot open archive: %w", err)
				}
				defer f.Close()
				in = f
			}

			n, err := dump.Restore(context.Background(), in, kvStore)
			if err != nil {
				return fmt.Errorf("restore failed after %d entries: %w", n, err)
			}

			fmt.Printf("restored %d entries\n", n)
			return nil
		},
	}
)

func init() {
	dumpCmd.Flags().String("format", string(dump.FormatBinary),
		util.WrapString("Archive record format: binary, gob or json"))
}
