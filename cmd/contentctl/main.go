// Package main implements contentctl, a CLI for normalizing webhook payloads
// and sending test requests to n8n content workflows.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"content-hub/normalizer"
	"content-hub/providers"
	"content-hub/providers/n8n"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "contentctl",
		Short: "CLI for content-hub webhook payloads",
		Long: `contentctl normalizes raw webhook responses the same way the content-hub
server does and can send generation requests to an n8n webhook.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newSendCmd())
	return root
}

func newNormalizeCmd() *cobra.Command {
	var topicArea, title string
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a raw webhook response from a file or stdin",
		Long: `Normalize a raw webhook response and print the result as JSON.

Examples:
  # Normalize a saved response
  contentctl normalize response.json --topic-area SEO

  # Normalize from stdin
  curl -s $WEBHOOK | contentctl normalize -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			res := normalizer.Normalize(string(raw), normalizer.Context{TopicArea: topicArea, Title: title})
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&topicArea, "topic-area", "", "default topic area for bundles without one")
	cmd.Flags().StringVar(&title, "title", "", "default title for bundles without one")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
		req     providers.GenerationRequest
		verbose bool
		showRaw bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a generation request to an n8n webhook",
		Long: `Send a generation request to an n8n webhook and print the normalized result.

Examples:
  contentctl send --url https://n8n.example.com/webhook/content --topic "Pricing pages" --keyword pricing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			logger := zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
				defer logger.Sync()
			}

			req.SessionID = uuid.NewString()
			client := n8n.NewClient("n8n", url, logger, n8n.WithTimeout(timeout), n8n.WithSource("contentctl"))
			raw, err := client.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if showRaw {
				fmt.Fprintln(cmd.ErrOrStderr(), raw)
			}
			res := normalizer.Normalize(raw, normalizer.Context{TopicArea: req.TopicArea, Title: req.Title})
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "webhook URL")
	cmd.Flags().DurationVar(&timeout, "timeout", n8n.DefaultTimeout, "request timeout")
	cmd.Flags().StringVar(&req.Topic, "topic", "", "content topic")
	cmd.Flags().StringVar(&req.TopicArea, "topic-area", "", "topic area")
	cmd.Flags().StringVar(&req.Title, "title", "", "working title")
	cmd.Flags().StringVar(&req.ContentType, "content-type", "", "content type focus")
	cmd.Flags().StringArrayVar(&req.Keywords, "keyword", nil, "target keyword (repeatable)")
	cmd.Flags().StringVar(&req.Instructions, "instructions", "", "extra instructions")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
	cmd.Flags().BoolVar(&showRaw, "raw", false, "print the raw response to stderr")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
