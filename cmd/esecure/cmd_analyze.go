package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"esecure/cmd/esecure/ui"
	"esecure/internal/analyzer"
	"esecure/internal/logging"
	"esecure/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeURL      string
	analyzeText     string
	analyzeTextFile string
	analyzeJSON     bool
)

// analyzeCmd runs one analysis without the popup
var analyzeCmd = &cobra.Command{
	Use:   "analyze [-]",
	Short: "Analyze a URL or terms text once and print the result",
	Long: `Sends one request to the analysis service and prints the safety score
and feedback, or the error. The URL wins when both a URL and text are given.
Pass "-" to read the terms text from stdin.

Examples:
  esecure analyze --url https://example.com/terms
  esecure analyze --text-file privacy.txt
  pbpaste | esecure analyze -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "URL of the terms page")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "Terms text")
	analyzeCmd.Flags().StringVar(&analyzeTextFile, "text-file", "", "Read terms text from a file")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
}

// analysisReport is the --json output.
type analysisReport struct {
	Status   string   `json:"status"`
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readAnalyzeText(cmd, args)
	if err != nil {
		return err
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, path)
	defer logging.CloseAll()

	ctrl := session.NewController(newClient(cfg), nil)
	ctrl.SetInput(session.Input{URL: analyzeURL, Text: text})

	logger.Debug("Analyzing terms",
		zap.String("endpoint", cfg.Backend.BaseURL+analyzer.AnalyzePath),
		zap.Bool("has_url", analyzeURL != ""),
		zap.Int("text_len", len(text)))

	st, err := ctrl.Submit(commandContext(cmd))
	if errors.Is(err, analyzer.ErrEmptyInput) {
		return errors.New(analyzer.PromptEmptyInput)
	}
	if err != nil {
		return err
	}

	if err := printReport(cmd.OutOrStdout(), st); err != nil {
		return err
	}
	if st.Status == session.StatusFailed {
		logger.Info("Analysis failed", zap.String("error", st.Err))
		return fmt.Errorf("%w: %s", errAnalysisFailed, st.Err)
	}
	return nil
}

func readAnalyzeText(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return "", fmt.Errorf("unexpected argument %q (use --url or --text)", args[0])
	case analyzeTextFile != "":
		data, err := os.ReadFile(analyzeTextFile)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return string(data), nil
	default:
		return analyzeText, nil
	}
}

func printReport(w io.Writer, st session.State) error {
	if !analyzeJSON {
		_, err := fmt.Fprint(w, ui.PlainPanel(st))
		return err
	}
	rep := analysisReport{Status: st.Status.String(), Error: st.Err}
	if st.Result != nil {
		rep.Score = st.Result.Score
		rep.Feedback = st.Result.Feedback
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
