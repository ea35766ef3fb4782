package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloomdesk/pkg/adminapi"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	adminToken string
	asJSON     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local overrides for development; absence is fine.
	_ = godotenv.Load()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bloomctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bloomctl",
		Short: "Moderation console for the bloomdesk backend",
		Long: `bloomctl drives the bloomdesk moderation API from the terminal:
list pending and published reviews, approve or reject them, and work
through the contact message inbox.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("BLOOMDESK_SERVER_URL", "http://localhost:8084"), "Base URL of the bloomdesk server")
	cmd.PersistentFlags().StringVarP(&adminToken, "token", "t", os.Getenv("BLOOMDESK_ADMIN_TOKEN"), "Admin bearer token")
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON instead of a table")
	cmd.AddCommand(
		newReviewsCmd(),
		newMessagesCmd(),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newAPIClient() adminapi.Client {
	return adminapi.NewClient(serverURL, adminToken, &http.Client{Timeout: 15 * time.Second})
}

// wrapAuthError turns the 401 sentinel into actionable CLI guidance.
func wrapAuthError(err error) error {
	if errors.Is(err, adminapi.ErrUnauthorized) {
		return fmt.Errorf("the server rejected your credentials; pass a valid token with --token or set BLOOMDESK_ADMIN_TOKEN")
	}
	return err
}

func newReviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Inspect and moderate customer reviews",
	}
	cmd.AddCommand(
		newReviewsListCmd(),
		newMutationCmd("approve <id>", "Publish a pending review", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.ApproveReview(ctx, id)
		}),
		newMutationCmd("unapprove <id>", "Move a published review back to pending", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.UnapproveReview(ctx, id)
		}),
		newMutationCmd("delete <id>", "Remove a review permanently", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.DeleteReview(ctx, id)
		}),
	)
	return cmd
}

func newReviewsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending and published reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets, err := newAPIClient().FetchReviews(cmd.Context())
			if err != nil {
				return wrapAuthError(err)
			}

			if asJSON {
				return printJSON(cmd, buckets)
			}

			cmd.Printf("PENDING (%d)\n", len(buckets.Pending))
			for _, r := range buckets.Pending {
				printReview(cmd, r)
			}
			cmd.Printf("\nPUBLISHED (%d)\n", len(buckets.Published))
			for _, r := range buckets.Published {
				printReview(cmd, r)
			}
			return nil
		},
	}
}

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Inspect and manage contact messages",
	}
	cmd.AddCommand(
		newMessagesListCmd(),
		newMutationCmd("read <id>", "Mark a message as read", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.MarkMessageRead(ctx, id)
		}),
		newMutationCmd("archive <id>", "Archive a message", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.ArchiveMessage(ctx, id)
		}),
		newMutationCmd("delete <id>", "Remove a message permanently", func(ctx context.Context, c adminapi.Client, id string) error {
			return c.DeleteMessage(ctx, id)
		}),
	)
	return cmd
}

func newMessagesListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contact messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := newAPIClient().FetchMessages(cmd.Context())
			if err != nil {
				return wrapAuthError(err)
			}

			if asJSON {
				return printJSON(cmd, messages)
			}

			shown := 0
			for _, m := range messages {
				if !all && m.Status == "archived" {
					continue
				}
				cmd.Printf("%s  [%-8s]  %s  %s\n    %s\n", m.ID, m.Status, m.Name, m.Phone, m.Message)
				shown++
			}
			cmd.Printf("\n%d message(s)\n", shown)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived messages")
	return cmd
}

// newMutationCmd builds a single-id moderation subcommand; all of them share
// the same argument and error handling.
func newMutationCmd(use, short string, op func(ctx context.Context, c adminapi.Client, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := op(cmd.Context(), newAPIClient(), args[0]); err != nil {
				return wrapAuthError(err)
			}
			cmd.Println("ok")
			return nil
		},
	}
}

func printReview(cmd *cobra.Command, r adminapi.Review) {
	cmd.Printf("%s  %d/5  %s  %s\n    %s\n", r.ID, r.Rating, r.Name, r.Created.Format("2006-01-02"), r.Text)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
