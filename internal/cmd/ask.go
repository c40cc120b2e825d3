package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/config"
	"github.com/asklens/asklens/internal/core/answer"
	errwrap "github.com/asklens/asklens/internal/errors"
	"github.com/asklens/asklens/internal/observability"
	"github.com/asklens/asklens/internal/output"
)

var (
	askFormat   string
	askModel    string
	askNoStream bool
	askNoSource bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a question grounded in web search results",
	Long: `Ask a question and get an answer grounded in live web search results.

The query is searched on the web, the top results are shown as sources, and
the answer streams to stdout as it is generated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errwrap.NewInvalidInputError("query must not be empty")
		}

		format, err := output.ParseFormat(askFormat)
		if err != nil {
			return errwrap.WrapInvalidInput(cmd.Context(), err, "invalid output format")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "config load failed")
		}
		applyEnvCredentialFallbacks(cfg)

		pipeline, err := buildAnswerPipeline(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "answer pipeline setup failed")
		}

		payload := map[string]any{"query": query}
		opts := answer.Options{Model: askModel}

		// Non-table formats need the full answer before rendering.
		if askNoStream || format != output.FormatTable {
			result, err := pipeline.RunComplete(cmd.Context(), payload, opts)
			if err != nil {
				return errwrap.WrapExternalService(cmd.Context(), err, "answer failed")
			}

			rendered, err := output.NewFormatter(format).FormatAnswer(&output.Result{
				Query:   result.Query,
				Sources: result.Sources,
				Answer:  result.Text,
			})
			if err != nil {
				return errwrap.WrapInternal(cmd.Context(), err, "render failed")
			}
			fmt.Println(rendered)
			return nil
		}

		result, err := pipeline.Run(cmd.Context(), payload, opts)
		if err != nil {
			return errwrap.WrapExternalService(cmd.Context(), err, "answer failed")
		}
		defer result.Stream.Close() // nolint:errcheck // best-effort cleanup

		if !askNoSource && len(result.Sources) > 0 {
			rendered, err := (&output.TableFormatter{}).FormatAnswer(&output.Result{
				Query:   result.Query,
				Sources: result.Sources,
			})
			if err != nil {
				return errwrap.WrapInternal(cmd.Context(), err, "render failed")
			}
			fmt.Print(rendered)
		}

		for {
			chunk, err := result.Stream.Recv()
			if err != nil {
				if err != io.EOF {
					observability.CLILogger.Warn("Answer stream interrupted", zap.Error(err))
				}
				break
			}
			fmt.Fprint(os.Stdout, chunk)
		}
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askFormat, "format", "f", "table", "output format (table, json, markdown)")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "override the completion model")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "wait for the full answer instead of streaming")
	askCmd.Flags().BoolVar(&askNoSource, "no-sources", false, "suppress the sources table")
}
