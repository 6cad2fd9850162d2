package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "outboxctl",
		Short:         "Inspect and operate the notification outbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newCancelCmd())
	cmd.AddCommand(newRequeueCmd())
	cmd.AddCommand(newPruneCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
