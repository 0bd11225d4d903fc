package main

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"critbot/internal/clock"
	"critbot/internal/htmldoc"
	"critbot/internal/watcher"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scanSite string
	scanCopy bool
)

var scanCmd = &cobra.Command{
	Use:   "scan FILE.html",
	Short: "Print critique prompts for the answers in a saved chat page",
	Long: `Runs a full-document sweep over a saved page and prints the critique prompt
for every qualifying answer. The site is taken from --site, or guessed from the
page's canonical URL.

Example:
  critbot scan conversation.html --site chatgpt --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanSite, "site", "", "Site profile: chatgpt, claude, gemini (default: from canonical URL)")
	scanCmd.Flags().BoolVar(&scanCopy, "copy", false, "Copy the last prompt to the clipboard")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	doc, err := htmldoc.Load(args[0])
	if err != nil {
		return err
	}

	profiles := watcher.NewProfiles(cfg.Sites)
	profile := profiles.ForURL(doc.CanonicalURL())
	if scanSite != "" {
		site, err := watcher.ParseSite(scanSite)
		if err != nil {
			return err
		}
		profile = profiles[site]
	}
	if profile.Site == watcher.SiteOther {
		return fmt.Errorf("cannot tell which site %s was saved from; pass --site", args[0])
	}

	opts := watcherOptions()
	opts.Cooldown = 0
	found := uniqueTexts(watcher.New(doc, profile, clock.Real(), opts).Sweep(ctx))
	logger.Debug("Scan finished", zap.String("file", args[0]), zap.String("site", string(profile.Site)), zap.Int("found", len(found)))

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, "No answers found.")
		return nil
	}

	builder := newBuilder()
	var last string
	for i, d := range found {
		last = builder.Build(d.Text, d.SourceQuestion)
		fmt.Fprintf(out, "=== answer %d/%d (%s, %d chars) ===\n%s\n\n",
			i+1, len(found), profile.Site, utf8.RuneCountInString(d.Text), last)
	}

	if scanCopy {
		if err := clipboard.WriteAll(last); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Last prompt copied to clipboard.")
	}
	return nil
}

// uniqueTexts drops detections whose text repeats an earlier one. Sites often
// match both an answer and its markdown body.
func uniqueTexts(found []watcher.DetectedResponse) []watcher.DetectedResponse {
	seen := make(map[string]struct{}, len(found))
	out := found[:0]
	for _, d := range found {
		key := strings.TrimSpace(d.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
