package main

import (
	"context"
	"fmt"
	"strings"

	chatbot "github.com/Vijaya2621/Chatbot-using-API"
	"github.com/Vijaya2621/Chatbot-using-API/internal/cli"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP (Model Context Protocol) server",
	Long: `Exposes chat and session tools to MCP clients.
The stdio transport is meant to be launched by the client; sse listens on --port.`,
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

		srv := mcp.NewServer(app.Sessions, app.Chat,
			mcp.WithLogger(app.Logger),
			mcp.WithVersion(chatbot.Version),
		)

		transport, _ := cmd.Flags().GetString("transport")
		switch strings.ToLower(transport) {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			port, _ := cmd.Flags().GetInt("port")
			return srv.ServeSSE(sigCtx, fmt.Sprintf(":%d", port), fmt.Sprintf("http://localhost:%d", port))
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport to use (stdio, sse)")
	mcpCmd.Flags().Int("port", 8080, "Port for the SSE transport")
}
