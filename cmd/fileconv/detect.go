package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nicholasgasior/fileconv"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Print the detected media type of files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nameOnly, _ := cmd.Flags().GetBool("name-only")
		detector := fileconv.NewDetector()

		out := cmd.OutOrStdout()
		for _, arg := range args {
			var mt fileconv.MediaType
			if nameOnly {
				mt = detector.DetectName(arg)
			} else {
				mt = detector.Detect(fileconv.FileSource(arg))
			}
			if mt.IsUnknown() {
				fmt.Fprintf(out, "%s\tunknown\n", arg)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", arg, mt)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().Bool("name-only", false, "classify by file extension without reading content")

	rootCmd.AddCommand(detectCmd)
}
