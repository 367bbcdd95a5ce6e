package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/docchat/internal/documents"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// cliNotifier prints document notices the way the rest of the CLI reports.
type cliNotifier struct{}

func (cliNotifier) Notify(n documents.Notice) {
	switch n.Level {
	case documents.NoticeSuccess:
		printSuccess("%s", n.Text)
	case documents.NoticeError:
		printError("%s", n.Text)
	default:
		printStep("%s", n.Text)
	}
}

func statusMark(o documents.Outcome) string {
	switch o {
	case documents.OutcomeSuccess:
		return " " + colorize(colorGreen, "✓")
	case documents.OutcomeError:
		return " " + colorize(colorRed, "✗")
	case documents.OutcomePending:
		return " " + colorize(colorYellow, "…")
	}
	return ""
}

// renderFiles writes one "name (1.00 KB) ✓" row per file.
func renderFiles(w io.Writer, files []documents.FileView) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files uploaded yet.")
		return
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s (%s)%s\n", f.Name, documents.FormatSize(f.Size), statusMark(f.Status))
	}
}
