package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"critbot/internal/gateway"
	"critbot/internal/presenter"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	critiqueQuestion string
	critiqueGenerate bool
	critiqueProvider string
	critiqueModel    string
	critiqueAPIKey   string
	critiqueCopy     bool
	critiquePlain    bool
)

var critiqueCmd = &cobra.Command{
	Use:   "critique [FILE]",
	Short: "Build (and optionally generate) a critique for one answer",
	Long: `Reads an LLM answer from FILE, or stdin when FILE is omitted or "-", and prints
the critique prompt. With --generate the prompt is sent to the configured
provider and the critique is rendered instead.

Provider, model and API key default to the stored preferences.

Examples:
  pbpaste | critbot critique --question "원격 근무가 생산성을 높이나요?"
  critbot critique answer.txt --generate --provider anthropic`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCritique,
}

func init() {
	critiqueCmd.Flags().StringVarP(&critiqueQuestion, "question", "q", "", "The user question that produced the answer")
	critiqueCmd.Flags().BoolVarP(&critiqueGenerate, "generate", "g", false, "Generate the critique through the provider")
	critiqueCmd.Flags().StringVar(&critiqueProvider, "provider", "", "Provider: openai, anthropic, gemini")
	critiqueCmd.Flags().StringVar(&critiqueModel, "model", "", "Model name")
	critiqueCmd.Flags().StringVar(&critiqueAPIKey, "api-key", "", "Provider API key")
	critiqueCmd.Flags().BoolVar(&critiqueCopy, "copy", false, "Copy the prompt (or critique) to the clipboard")
	critiqueCmd.Flags().BoolVar(&critiquePlain, "plain", false, "Print the critique without markdown rendering")
}

func readAnswer(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no answer text given")
	}
	return text, nil
}

func runCritique(cmd *cobra.Command, args []string) error {
	answer, err := readAnswer(cmd, args)
	if err != nil {
		return err
	}
	criticPrompt := newBuilder().Build(answer, critiqueQuestion)
	out := cmd.OutOrStdout()

	if !critiqueGenerate {
		fmt.Fprintln(out, criticPrompt)
		return copyIfAsked(cmd, criticPrompt)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	provider, model, apiKey := critiqueProvider, critiqueModel, critiqueAPIKey
	if provider == "" || apiKey == "" {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		st, err := store.LoadSettings(ctx)
		store.Close()
		if err != nil {
			return err
		}
		if provider == "" {
			provider = st.Provider
			if model == "" {
				model = st.Model
			}
		}
		if apiKey == "" {
			apiKey = st.APIKey
		}
	}

	gw := gateway.New(cfg.Providers, cfg.GetProviderTimeout())
	text, err := gw.Generate(ctx, provider, model, apiKey, criticPrompt)
	if err != nil {
		return err
	}
	logger.Debug("Critique generated", zap.String("provider", provider), zap.Int("chars", len(text)))

	if critiquePlain {
		fmt.Fprintln(out, text)
	} else {
		rendered, err := renderCritique(text)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	}
	return copyIfAsked(cmd, text)
}

// renderCritique renders the summary and the detail as markdown sections.
func renderCritique(text string) (string, error) {
	summary, detail := presenter.Split(text)
	var b strings.Builder
	b.WriteString("## 요약\n\n")
	b.WriteString(asMarkdownLines(summary))
	if detail != "" {
		b.WriteString("\n\n## 자세히\n\n")
		b.WriteString(asMarkdownLines(detail))
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(b.String())
}

// asMarkdownLines keeps the critique's line structure; "1) ..." lines are not
// markdown list items and would otherwise be joined into one paragraph.
func asMarkdownLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = strings.TrimRight(l, " ") + "  "
		}
	}
	return strings.Join(lines, "\n")
}

func copyIfAsked(cmd *cobra.Command, text string) error {
	if !critiqueCopy {
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
	return nil
}
