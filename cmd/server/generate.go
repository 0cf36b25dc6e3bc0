package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/agentoven/kpi-report/internal/report"
	"github.com/agentoven/kpi-report/pkg/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	generateInput   string
	generateFormat  string
	generateVerbose bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one report conversation from a request file and print the result",
	Long: `Run one report conversation without starting the HTTP server.

The input file holds the same JSON body POST /report accepts. Use "-" to read
it from stdin. The report is written to stdout; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		in, err := openInput(generateInput)
		if err != nil {
			return err
		}
		defer in.Close()

		req, err := report.DecodeRequest(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", generateInput, err)
		}

		srv, err := server.NewWithConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer srv.ShutdownFunc(cmd.Context())

		html := strings.EqualFold(generateFormat, "html")
		resp, result, err := srv.Generator.Generate(cmd.Context(), req, report.Options{HTML: html})
		if err != nil {
			return err
		}

		if generateVerbose {
			for _, turn := range result.Turns {
				log.Info().
					Int("turn", turn.Number).
					Str("role", string(turn.Role)).
					Int64("latency_ms", turn.LatencyMs).
					Int64("tokens", turn.Usage.TotalTokens).
					Msg(firstLine(turn.Content))
			}
			log.Info().
				Str("conversation", resp.ConversationID).
				Bool("approved", resp.Approved).
				Dur("took", time.Duration(result.TotalMs)*time.Millisecond).
				Msg("Conversation finished")
		}

		out := cmd.OutOrStdout()
		if html {
			_, err = io.WriteString(out, resp.HTML)
		} else {
			_, err = fmt.Fprintln(out, resp.Report)
		}
		return err
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "-", "Request JSON file, or - for stdin")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "markdown", "Output format: markdown | html")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Log every turn of the conversation")
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
