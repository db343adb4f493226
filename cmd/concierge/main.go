package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the concierge release, set at build time with -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Concierge - personal assistant CLI",
	Long: `Concierge tracks multi-step tasks, remembers what matters to you and
keeps your conversation history searchable.

Every command except daemon and version talks to a running daemon at --api.`,
	SilenceUsage: true,
}

// apiAddr is the daemon base address, without the /api prefix.
var apiAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")

	rootCmd.AddCommand(daemonCmd, taskCmd, memoryCmd, conversationCmd, tuiCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("concierge %s\n", Version)
	},
}

func main() {
	// cobra already printed "Error: ..." to stderr.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
