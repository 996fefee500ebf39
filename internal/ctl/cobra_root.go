package ctl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Main is the ensemblectl entrypoint.
func Main() int {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func defaultAddr() string {
	if v := os.Getenv("ENSEMBLED_ADDR"); v != "" {
		return v
	}
	return "localhost:8080"
}

// buildRootCmd constructs the Cobra command tree over the HTTP client.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ensemblectl",
		Short:         "Query and inspect a running ensembled instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("addr", defaultAddr(), "ensembled address (defaults ENSEMBLED_ADDR or localhost:8080)")
	client := func(cmd *cobra.Command) *Client {
		addr, _ := cmd.Flags().GetString("addr")
		return NewClient(addr)
	}

	askCmd := &cobra.Command{
		Use:     "ask <prompt>",
		Short:   "Run a prompt through the pipeline and stream progress",
		Example: "  ensemblectl ask \"What is the capital of France?\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed string
			err := client(cmd).Ask(cmd.Context(), args[0], func(ev WireEvent) {
				switch {
				case ev.Stage != "":
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s]\n", ev.Stage)
				case ev.FinalAnswer != nil:
					fmt.Fprintln(cmd.OutOrStdout(), *ev.FinalAnswer)
					for _, m := range ev.Models {
						fmt.Fprintf(cmd.ErrOrStderr(), "  contributed: %s\n", m.ModelID)
					}
				case ev.Error != "":
					failed = ev.Error
				}
			})
			if err != nil {
				return err
			}
			if failed != "" {
				return fmt.Errorf("%s", failed)
			}
			return nil
		},
	}

	feedbackCmd := &cobra.Command{
		Use:     "feedback <modelId> <rating>",
		Short:   "Rate a model's contribution (+1 or -1)",
		Example: "  ensemblectl feedback acme/alpha 1\n  ensemblectl feedback acme/alpha -- -1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be 1 or -1: %w", err)
			}
			msg, err := client(cmd).Feedback(cmd.Context(), args[0], rating)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := client(cmd).Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\ttokens=%d temp=%.2f\n",
					m.ID, m.Label, m.Parameters.MaxTokens, m.Parameters.Temperature)
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client(cmd).Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "strategy=%s models=%d runs=%d feedback=%d uptime=%ds\n",
				st.Strategy, st.Models, st.RunsTotal, st.FeedbackTotal, st.UptimeSeconds)
			return nil
		},
	}

	root.AddCommand(askCmd, feedbackCmd, modelsCmd, statusCmd)
	return root
}
