package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicholasgasior/fileconv"
)

var formatsCmd = &cobra.Command{
	Use:   "formats <file|media-type>...",
	Short: "List the output formats available for files or media types",
	Long: `Formats prints, for each argument, the output formats the registry offers.
An argument naming an existing file is detected from its content; anything
else containing a slash is taken as a media type. An empty list means no
conversion is available.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, arg := range args {
			var formats []string
			if _, statErr := os.Stat(arg); statErr != nil && strings.Contains(arg, "/") {
				formats = engine.OutputsFor(fileconv.MediaType(arg))
			} else {
				formats = engine.ListOutputFormats(fileconv.FileSource(arg))
			}
			fmt.Fprintf(out, "%s\t%s\n", arg, strings.Join(formats, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
