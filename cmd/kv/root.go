package kv

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bkv-project/bKV/cmd/util"
	"github.com/bkv-project/bKV/lib/logging"
	"github.com/bkv-project/bKV/lib/store"
	"github.com/bkv-project/bKV/lib/store/bstore"
)

var (
	// kvStore is the bridged store all subcommands operate on.
	// It is opened by setupStore before any subcommand runs and
	// closed again by teardownStore.
	kvStore store.IStore

	// kvTimeout bounds a single store operation
	kvTimeout time.Duration

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		Long:               "Operate on a store file: reads, writes, cursor walks, archives and benchmarks.",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: teardownStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store selection flags to the command group
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(setDefaultCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(lenCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(firstKeyCmd)
	KeyValueCommands.AddCommand(nextKeyCmd)
	KeyValueCommands.AddCommand(syncCmd)
	KeyValueCommands.AddCommand(reorganizeCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(dumpCmd)
	KeyValueCommands.AddCommand(restoreCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore opens the store every kv subcommand operates on
func setupStore(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	logging.Init(viper.GetString("log-level"), viper.GetString("log-format"))

	mode, err := util.GetMode()
	if err != nil {
		return err
	}

	opts, err := util.GetStoreOptions()
	if err != nil {
		return err
	}

	kvTimeout = util.GetTimeout()

	kvStore, err = bstore.Open(util.GetStorePath(), mode, opts)
	return err
}

// teardownStore closes the store once the subcommand is done
func teardownStore(*cobra.Command, []string) error {
	if kvStore == nil {
		return nil
	}
	ctx, cancel := opCtx()
	defer cancel()
	return kvStore.Close(ctx)
}

// opCtx returns the context for one store operation
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), kvTimeout)
}
