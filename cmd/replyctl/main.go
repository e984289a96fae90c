// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// replyctl is the operator CLI for the reply drafter.
//
// Usage:
//
//	replyctl draft <conversation-id> [--dry-run]
//	replyctl route --subject "..." [text...]
//	replyctl kb setup --name help-center docs/*.md
//	replyctl runs [--conversation id] [--limit 20]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/bcem/drafter/internal/app"
	"github.com/bcem/drafter/internal/bearer"
	"github.com/bcem/drafter/internal/config"
	"github.com/bcem/drafter/internal/knowledge"
	"github.com/bcem/drafter/internal/publish"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "replyctl",
		Short:         "Operate the reply drafter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("read .env: %w", err)
			}
			if cfgFile != "" {
				os.Setenv("CONFIG_PATH", cfgFile)
			}
			level, err := config.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(config.NewLogger(os.Stderr, level))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(draftCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(runsCmd())

	return rootCmd
}

func draftCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "draft <conversation-id>",
		Short: "Draft a reply for one conversation",
		Long:  "Run the full pipeline once. With --dry-run the draft is printed instead of created.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraft(cmd.Context(), cmd.OutOrStdout(), args[0], dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the draft without creating it")

	return cmd
}

func runDraft(ctx context.Context, out io.Writer, conversationID string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.Build(ctx, cfg, app.Options{WithSinks: !dryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		d, err := a.Pipeline.Prepare(ctx, conversationID)
		if err != nil {
			return err
		}
		to := "(none)"
		if d.HasTarget {
			to = d.Target.Address
		}
		fmt.Fprintf(out, "To:       %s\n", to)
		fmt.Fprintf(out, "Subject:  %s\n", publish.Subject(d.Subject))
		fmt.Fprintf(out, "Category: %s\n", d.Decision.Category)
		fmt.Fprintf(out, "CTA:      %s\n", d.Decision.URL)
		fmt.Fprintf(out, "Grounded: %t\n", d.Grounded)
		fmt.Fprintf(out, "Messages: %d\n\n%s\n", d.MessageCount, d.Body)
		return nil
	}

	res, err := a.Pipeline.Run(ctx, conversationID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "draft %s created (%s, grounded=%t)\n", res.DraftID, res.Decision.Category, res.Grounded)
	return nil
}

func routeCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "route [text...]",
		Short: "Show the CTA destination for a text",
		Long:  "Classify the arguments (or stdin when none are given) with the configured routing rules.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			router, err := app.NewRouter(cfg)
			if err != nil {
				return err
			}
			d := router.Route(text, subject)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Category, d.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "conversation subject")

	return cmd
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	var name string
	setup := &cobra.Command{
		Use:   "setup <file>...",
		Short: "Create a vector store and upload files into it",
		Long:  "Create a vector store, upload every file and attach it. Prints the vector store id to put in VECTOR_STORE_ID.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Generation.APIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required")
			}

			oaCfg := openai.DefaultConfig(cfg.Generation.APIKey)
			if cfg.Generation.BaseURL != "" {
				oaCfg.BaseURL = cfg.Generation.BaseURL
			}
			files := openai.NewClientWithConfig(oaCfg)

			httpClient := bearer.NewClient(cmd.Context(), cfg.Generation.APIKey, nil)
			m := knowledge.NewManager(httpClient, cfg.Generation.BaseURL, files)

			id, err := m.Setup(cmd.Context(), name, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	setup.Flags().StringVar(&name, "name", "reply-drafter-kb", "vector store name")

	cmd.AddCommand(setup)
	return cmd
}

func runsCmd() *cobra.Command {
	var (
		conversationID string
		limit          int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recently published drafts from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.OpenLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Ledger.Recent(cmd.Context(), conversationID, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tCONVERSATION\tDRAFT\tCATEGORY\tGROUNDED\tMESSAGES\tDURATION")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%dms\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"), r.ConversationID, r.DraftID,
					r.Category, r.Grounded, r.MessageCount, r.DurationMS)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "only runs for this conversation")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	return cmd
}
