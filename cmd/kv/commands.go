package kv

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkv-project/bKV/cmd/util"
	"github.com/bkv-project/bKV/lib/db"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ctx, cancel := opCtx()
			defer cancel()
			if err := kvStore.Set(ctx, []byte(key), []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	setDefaultCmd = &cobra.Command{
		Use:   "setdefault [key] [value]",
		Short: "Sets the value for a key only if the key is absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ctx, cancel := opCtx()
			defer cancel()
			if actual, loaded, err := kvStore.SetDefault(ctx, []byte(key), []byte(value)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, existed=%t, value=%s\n", key, loaded, actual)
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ctx, cancel := opCtx()
			defer cancel()
			if resp, err := kvStore.Get(ctx, []byte(key)); db.IsNotFound(err) {
				fmt.Printf("key=%s, found=false\n", key)
			} else if err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=true, value=%s\n", key, resp)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ctx, cancel := opCtx()
			defer cancel()
			if err := kvStore.Delete(ctx, []byte(key)); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ctx, cancel := opCtx()
			defer cancel()
			if found, err := kvStore.Has(ctx, []byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Counts the entries in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			if n, err := kvStore.Len(ctx); err != nil {
				return err
			} else {
				fmt.Printf("entries=%d\n", n)
			}
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			it, err := kvStore.Keys(ctx)
			if err != nil {
				return err
			}
			for key, ok := it.Next(); ok; key, ok = it.Next() {
				fmt.Printf("%s\n", key)
			}
			return nil
		},
	}
	firstKeyCmd = &cobra.Command{
		Use:   "firstkey",
		Short: "Reads the first key in the store's traversal order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			if key, ok, err := kvStore.FirstKey(ctx); err != nil {
				return err
			} else if !ok {
				fmt.Println("store is empty")
			} else {
				fmt.Printf("key=%s\n", key)
			}
			return nil
		},
	}
	nextKeyCmd = &cobra.Command{
		Use:   "nextkey [key]",
		Short: "Reads the key following the given key in traversal order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ctx, cancel := opCtx()
			defer cancel()
			if next, ok, err := kvStore.NextKey(ctx, []byte(key)); err != nil {
				return err
			} else if !ok {
				fmt.Printf("no key after %s\n", key)
			} else {
				fmt.Printf("key=%s\n", next)
			}
			return nil
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Flushes pending writes to stable storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			if err := kvStore.Sync(ctx); err != nil {
				return err
			} else {
				fmt.Println("sync successfully")
			}
			return nil
		},
	}
	reorganizeCmd = &cobra.Command{
		Use:   "reorganize",
		Short: "Compacts the store and reclaims unused space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			if err := kvStore.Reorganize(ctx); err != nil {
				return err
			} else {
				fmt.Println("reorganize successfully")
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows metadata about the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()
			info, err := kvStore.Info(ctx)
			if err != nil {
				return err
			}

			features := make([]string, 0, len(info.SupportedFeatures))
			for _, f := range info.SupportedFeatures {
				features = append(features, f.String())
			}

			fmt.Printf("path:     %s\n", info.Path)
			fmt.Printf("engine:   %s\n", info.Impl)
			fmt.Printf("entries:  %d\n", info.Entries)
			fmt.Printf("size:     %s\n", util.FormatByteSize(info.SizeBytes))
			fmt.Printf("features: %s\n", strings.Join(features, ", "))
			return nil
		},
	}
)
