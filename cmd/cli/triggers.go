package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"castflow/internal/services"

	"github.com/spf13/cobra"
)

// triggersCmd lists the static trigger catalog. No database access needed;
// the catalog is compiled in.
var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "List the automation trigger catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := services.NewTriggerCatalog()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, t := range catalog.List() {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(triggersCmd)
}
