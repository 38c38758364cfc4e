package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nicholasgasior/fileconv"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>... --to <format>",
	Short: "Convert files to another format",
	Long: `Convert detects each input, converts it to the --to format and writes
<name>.<format> into the --out directory. Inputs are converted concurrently
and independently; the command fails if any conversion failed. Use "-" to
read one input from stdin, with --name giving its filename.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]string{
			"engine.timeout":   "timeout",
			"engine.overwrite": "overwrite",
			"engine.workers":   "jobs",
		})
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetString("to")
		outDir, _ := cmd.Flags().GetString("out")

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		reqs := make([]fileconv.Request, 0, len(args))
		for _, arg := range args {
			src := fileconv.FileSource(arg)
			if arg == "-" {
				name, _ := cmd.Flags().GetString("name")
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				src = fileconv.BytesSource(name, data)
			}
			reqs = append(reqs, fileconv.Request{Source: src, Target: target, OutDir: outDir})
		}

		failed := 0
		out := cmd.OutOrStdout()
		for _, res := range engine.ConvertAll(cmd.Context(), reqs, cfg.Engine.Workers) {
			if res.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL\t%s\t%v\n", res.Request.Source.Name(), res.Err)
				continue
			}
			fmt.Fprintf(out, "ok\t%s\t%s\n", res.Request.Source.Name(), res.Artifact.Path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d conversions failed", failed, len(reqs))
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("to", "", "target format (e.g. pdf, html, md, png)")
	convertCmd.Flags().String("out", ".", "output directory")
	convertCmd.Flags().Int("jobs", 0, "concurrent conversions (default: number of CPUs)")
	convertCmd.Flags().Duration("timeout", 0, "per-conversion timeout, 0 for none")
	convertCmd.Flags().Bool("overwrite", false, "replace existing output files")
	convertCmd.Flags().String("name", "stdin", "filename hint for input read from stdin")
	_ = convertCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(convertCmd)
}
