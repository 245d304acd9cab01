package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suntvalg/suntvalg-server/internal/version"
)

var (
	configPathFlag string
	storeFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "suntvalg",
	Short: "SuntValg waitlist and support email backend",
	Long: `SuntValg backend

Collects waitlist signups, sends localized welcome emails and answers
inbound support email with a language model.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("suntvalg %s\n", version.String())
		fmt.Printf("go: %s\n", info.GoVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", ".", "Directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", storePostgres, "Storage backend: postgres or memory")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(deadLettersCmd)
	rootCmd.AddCommand(signWebhookCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
