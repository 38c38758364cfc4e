package main

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nicholasgasior/fileconv/internal/admin"
	"github.com/nicholasgasior/fileconv/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch --in <dir> --out <dir> --to <format>",
	Short: "Convert files dropped into a directory",
	Long: `Watch runs until interrupted, converting every file created or rewritten
in the input directory once it has been quiet for the debounce interval.
With --admin-addr it serves /metrics and /healthz.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]string{
			"watch.in":         "in",
			"watch.out":        "out",
			"watch.target":     "to",
			"watch.debounce":   "debounce",
			"engine.timeout":   "timeout",
			"engine.overwrite": "overwrite",
			"engine.workers":   "jobs",
			"admin.addr":       "admin-addr",
		})
		if err != nil {
			return err
		}
		if cfg.Watch.Target == "" {
			return errNoTarget
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		scan, _ := cmd.Flags().GetBool("scan")

		w, err := watch.New(engine, watch.Config{
			In:       cfg.Watch.In,
			Out:      cfg.Watch.Out,
			Target:   cfg.Watch.Target,
			Debounce: cfg.Watch.Debounce,
			Workers:  cfg.Engine.Workers,
			Scan:     scan,
		}, nil)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return w.Run(ctx) })
		if cfg.Admin.Addr != "" {
			srv := admin.NewServer(cfg.Admin.Addr, admin.NewRouter(w.Healthy))
			g.Go(func() error { return srv.ListenAndServe(ctx) })
		}
		return g.Wait()
	},
}

var errNoTarget = errors.New("target format is required")

func init() {
	watchCmd.Flags().String("in", "", "directory to watch")
	watchCmd.Flags().String("out", "", "directory receiving converted files")
	watchCmd.Flags().String("to", "", "target format")
	watchCmd.Flags().Duration("debounce", 0, "quiet interval before converting a changed file")
	watchCmd.Flags().Duration("timeout", 0, "per-conversion timeout, 0 for none")
	watchCmd.Flags().Bool("overwrite", false, "replace existing output files")
	watchCmd.Flags().Int("jobs", 0, "concurrent conversions")
	watchCmd.Flags().String("admin-addr", "", "listen address for /metrics and /healthz, empty to disable")
	watchCmd.Flags().Bool("scan", false, "also convert files already in the input directory")

	rootCmd.AddCommand(watchCmd)
}
