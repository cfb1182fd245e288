package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/expensesync/expensesync/internal/provider"
)

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the available LLM providers",
		Long:  "List every registered LLM provider, its model, and whether its API key is set.",
		RunE:  runProviders,
	}
}

func runProviders(_ *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tKEY ENV VAR\tCONFIGURED")

	for _, name := range provider.Names() {
		cfg, err := provider.Lookup(name)
		if err != nil {
			return err
		}

		configured := "no"
		if provider.Configured(name) {
			configured = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, cfg.ModelName, cfg.APIKeyEnvVar, configured)
	}

	return w.Flush()
}
