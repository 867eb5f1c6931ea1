package main

import (
	"context"
	"strings"

	chatbot "github.com/Vijaya2621/Chatbot-using-API"
	"github.com/Vijaya2621/Chatbot-using-API/internal/cli"
	"github.com/Vijaya2621/Chatbot-using-API/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the chat API with the configured store and LLM provider.
Idle sessions are swept in the background unless sweep.enabled is false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(cmd.ErrOrStderr(), strings.TrimSpace(chatbot.Version))
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := chatbot.New(sigCtx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Serve(sigCtx); err != nil {
			return err
		}
		if sig := sigCtx.Signal(); sig != nil {
			app.Logger.Info("server stopped", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
