package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pnathan/pagestore/bufferpool"
	"github.com/pnathan/pagestore/storage"
)

// newDemoCmd drives a small pin/unpin script (set by --pin) against a buffer pool
// configured from loadConfig, then prints the resulting frame contents and
// I/O counters. It exists to exercise the public API end to end.
func newDemoCmd() *cobra.Command {
	var numPagesFlag int
	var strategyFlag string
	var pagesToLoad []int

	cmd := &cobra.Command{
		Use:   "demo <file>",
		Short: "Run a scripted pin/unpin sequence against a buffer pool and print its stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pages") {
				cfg.NumPages = numPagesFlag
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Strategy = strategyFlag
			}

			strategy, ok := parseStrategy(cfg.Strategy)
			if !ok {
				return fmt.Errorf("unknown strategy %q", cfg.Strategy)
			}

			if _, err := os.Stat(file); err != nil {
				if err := storage.Create(file); err != nil {
					return err
				}
			}
			store, err := storage.Open(file)
			if err != nil {
				return err
			}
			if err := store.EnsureCapacity(len(pagesToLoad) + 1); err != nil {
				store.Close()
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			recorder, err := bufferpool.NewRecorder(reg, file)
			if err != nil {
				return err
			}

			bm, err := bufferpool.InitBufferPool(file, cfg.NumPages, strategy, nil, bufferpool.WithMetrics(recorder))
			if err != nil {
				return err
			}
			defer bm.ShutdownBufferPool()

			for _, p := range pagesToLoad {
				h, err := bm.PinPage(p)
				if err != nil {
					return err
				}
				if err := bm.UnpinPage(h); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "strategy:      %s\n", strategy)
			fmt.Fprintf(cmd.OutOrStdout(), "frames:        %v\n", bm.GetFrameContents())
			fmt.Fprintf(cmd.OutOrStdout(), "recently used: %v\n", bm.RecentlyUsed())
			fmt.Fprintf(cmd.OutOrStdout(), "read IO:       %d\n", bm.GetNumReadIO())
			fmt.Fprintf(cmd.OutOrStdout(), "write IO:      %d\n", bm.GetNumWriteIO())
			return nil
		},
	}

	cmd.Flags().IntVar(&numPagesFlag, "pages", 0, "frame count (overrides config)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "replacement strategy: FIFO, LRU, LFU, LRU-K, CLOCK (overrides config)")
	cmd.Flags().IntSliceVar(&pagesToLoad, "pin", []int{0, 1, 2, 0, 3}, "sequence of page numbers to pin/unpin in order")
	return cmd
}
