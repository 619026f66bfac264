// Command soundalike serves the track API and runs one-off generations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "soundalike",
	Short: "Upload tracks and generate stylistic variants of them",
	// usage on every runtime error is noise
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		return runServe(cmd.Context(), envFile)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate variants of a local audio file and print them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		return runGenerate(cmd.Context(), envFile, args[0], cmd.OutOrStdout())
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint an API bearer token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		role, _ := cmd.Flags().GetString("role")
		return runToken(envFile, args[0], role, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", ".env", "Path to an optional .env file")
	tokenCmd.Flags().String("role", "client", "Role claim of the token")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
