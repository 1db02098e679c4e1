// cmd/replay/main.go

// replay runs the extractors and the classifier over captured device output,
// without connecting to anything.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bmcdonald3/fwreconcile/pkg/firmware"
)

var rootCmd = &cobra.Command{
	Use:          "replay",
	Short:        "Classifies firmware files from saved directory and startup reports.",
	SilenceUsage: true,
	RunE:         executeReplay,
}

var dirFile, startupFile string

func init() {
	rootCmd.Flags().StringVarP(&dirFile, "dir", "d", "", "Saved output of the directory listing command (required)")
	rootCmd.Flags().StringVarP(&startupFile, "startup", "s", "", "Saved output of the startup command (required)")
	rootCmd.MarkFlagRequired("dir")
	rootCmd.MarkFlagRequired("startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func executeReplay(cmd *cobra.Command, _ []string) error {
	dir, err := os.ReadFile(dirFile)
	if err != nil {
		return errors.Wrap(err, "read directory report")
	}
	startup, err := os.ReadFile(startupFile)
	if err != nil {
		return errors.Wrap(err, "read startup report")
	}

	refs, err := firmware.ParseBootReferences(string(startup))
	if err != nil {
		return err
	}
	inv := firmware.ParseInventory(string(dir))
	c := firmware.Classify(inv, refs)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Boot references:")
	fmt.Fprintf(out, "  current system  %s\n", refs.CurrentSystem)
	fmt.Fprintf(out, "  next system     %s\n", refs.NextSystem)
	fmt.Fprintf(out, "  current patch   %s\n", refs.CurrentPatch)
	fmt.Fprintf(out, "  next patch      %s\n", refs.NextPatch)

	fmt.Fprintf(out, "Inventory (%d files):\n", len(inv))
	for _, f := range inv {
		fmt.Fprintf(out, "  %-6s %s\n", f.Kind, f)
	}

	fmt.Fprintln(out, "Classification:")
	for _, f := range c.Referenced {
		fmt.Fprintf(out, "  keep   %s\n", f)
	}
	for _, f := range c.Orphaned {
		fmt.Fprintf(out, "  delete %s\n", f)
	}
	return nil
}
