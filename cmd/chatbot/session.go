package main

import (
	"encoding/json"
	"fmt"

	chatbot "github.com/Vijaya2621/Chatbot-using-API"
	"github.com/Vijaya2621/Chatbot-using-API/internal/presentation/tui"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, remove and sweep sessions in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		ids, err := mgr.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		s, err := mgr.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
			md := tui.Transcript(s)
			if render, err := tui.NewRenderer(0); err == nil {
				if rendered, err := render(md); err == nil {
					md = rendered
				}
			}
			fmt.Fprint(out, md)
			return nil
		}

		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling session: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeFn, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		failed := 0
		for _, id := range args {
			if err := mgr.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions could not be removed", failed, len(args))
		}
		return nil
	},
}

var sessionSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove sessions idle for longer than --max-age",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		maxAge := cfg.Sweep.MaxAge
		if cmd.Flags().Changed("max-age") {
			maxAge, _ = cmd.Flags().GetDuration("max-age")
		}

		mgr, closeFn, err := chatbot.OpenSessions(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := mgr.Sweep(cmd.Context(), maxAge)
		for _, id := range report.StoreRemoved {
			fmt.Fprintf(cmd.OutOrStdout(), "Swept session '%s'\n", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sessions older than %s removed\n", len(report.StoreRemoved), maxAge)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionCmd.AddCommand(sessionSweepCmd)

	sessionInspectCmd.Flags().Bool("pretty", false, "Render the conversation as a formatted transcript")
	sessionSweepCmd.Flags().Duration("max-age", session.DefaultMaxAge, "Idle age at which sessions are removed")
}

func openSessions(cmd *cobra.Command) (*session.Manager, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return chatbot.OpenSessions(cfg)
}

