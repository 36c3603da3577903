package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkv-project/bKV/cmd/kv"
	"github.com/bkv-project/bKV/cmd/util"
	"github.com/bkv-project/bKV/lib/db"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "bkv",
		Short: "bridged key-value store",
		Long: fmt.Sprintf(`bKV (v%s)

An embedded key-value store behind a serialization bridge: any number
of goroutines share one store handle through a single worker, with
bolt, badger and flat storage engines behind one interface.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bKV v%s\n", Version)
		},
	}

	// whichCmd inspects a path without opening the store, so it works on
	// files that are currently locked by another process.
	whichCmd = &cobra.Command{
		Use:   "which [path]",
		Short: "Detect which engine wrote a store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			impl, err := db.Detect(args[0])
			if err != nil {
				return err
			}
			if impl == db.ImplUnknown {
				fmt.Println("unknown store format")
				return nil
			}
			fmt.Println(impl)
			return nil
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(whichCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level to use (debug, info, warn, error)"))
	key = "log-format"
	RootCmd.PersistentFlags().String(key, "text", util.WrapString("log format to use (text, json)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
