package main

import (
	"encoding/json"
	"fmt"

	"github.com/harunnryd/polaris/internal/tool"
	"github.com/harunnryd/polaris/internal/tool/contentstack"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the CMS tools offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		// Definitions are static; no CMS client is needed to describe them.
		descriptors := tool.NewRunner(contentstack.NewRegistry(nil)).GetDescriptors()

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(descriptors)
		}
		fmt.Fprintln(out, newFormatter().FormatTools(descriptors))
		return nil
	},
}

func init() {
	toolsCmd.Flags().Bool("json", false, "Print tool definitions as JSON")
	rootCmd.AddCommand(toolsCmd)
}
