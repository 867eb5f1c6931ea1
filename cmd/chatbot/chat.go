package main

import (
	"context"

	chatbot "github.com/Vijaya2621/Chatbot-using-API"
	"github.com/Vijaya2621/Chatbot-using-API/internal/cli"
	"github.com/Vijaya2621/Chatbot-using-API/internal/presentation/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Chat with the assistant in the terminal",
	Long: `Opens an interactive conversation. Pass a session id to resume a session,
for example one created through the HTTP API with an uploaded PDF.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := chatbot.New(sigCtx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID := uuid.NewString()
		if len(args) == 1 {
			sessionID = args[0]
		}

		headless, _ := cmd.Flags().GetBool("headless")
		r := &cli.Runner{
			Input:    cmd.InOrStdin(),
			Output:   cmd.OutOrStdout(),
			Headless: headless,
		}
		if !headless {
			if render, err := tui.NewRenderer(0); err == nil {
				r.Renderer = render
			}
		}
		return r.Run(sigCtx, app.Chat, sessionID)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("headless", false, "Plain output without prompts or markdown rendering")
}
