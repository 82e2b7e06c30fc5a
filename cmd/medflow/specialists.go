package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var specialistsCmd = &cobra.Command{
	Use:   "specialists",
	Short: "List the specialists patients can be routed to",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tNAME\tDESCRIPTION")
		for _, s := range a.kb.Specialists() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Type, s.Name, s.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(specialistsCmd)
}
