package main

import (
	"github.com/spf13/cobra"

	"rescueops/internal/console"
)

var consoleAddr string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Attach a live terminal console to a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return console.Run(consoleAddr)
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleAddr, "addr", "localhost:8080", "Server address (host:port)")
}
