package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/spf13/cobra"
)

func newCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List the error codes statuses and exit errors may carry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tKEY\tMESSAGE")
			for _, err := range errcode.All() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", err.Code(), err.MsgKey(), err.Message())
			}
			return w.Flush()
		},
	}
}
