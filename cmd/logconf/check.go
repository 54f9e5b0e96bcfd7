package main

import (
	"errors"
	"fmt"

	"github.com/KOMKZ/go-yogan-logconf/classic"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"github.com/spf13/cobra"
)

var errHasErrors = errors.New("configuration reported errors")

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Play a configuration once and print its statuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := logger.NewContext("logconf-check")
			defer lc.Stop()

			cfg := classic.NewConfigurator(lc)
			err := cfg.DoConfigure(cmd.Context(), source.NewFileSource(args[0]))
			status.Print(cmd.OutOrStdout(), lc.StatusManager().List())

			if err != nil {
				return fmt.Errorf("configure from %s: %w", args[0], err)
			}
			worst := lc.StatusManager().HighestLevel(lc.BirthTime())
			if worst >= status.LevelError || (strict && worst >= status.LevelWarn) {
				return errHasErrors
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: appenders %v\n", lc.State().AppenderNames())
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}
