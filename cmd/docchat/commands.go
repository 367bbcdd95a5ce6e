package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/docchat/internal/chat"
	"github.com/kalambet/docchat/internal/config"
	"github.com/kalambet/docchat/internal/documents"
)

// --- files ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage the documents held by the backend",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		mgr, err := newManager(cfg)
		if err != nil {
			return err
		}

		mgr.Initialize(cmd.Context())
		renderFiles(cmd.OutOrStdout(), mgr.Files())
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload one or more files",
	Long: `Upload one or more files. Files are added to the list immediately and
uploaded one at a time; a failed upload does not stop the rest.

Examples:
  docchat files upload ./notes.txt ./paper.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		local := make([]documents.LocalFile, 0, len(args))
		for _, p := range args {
			f, err := documents.FromPath(p)
			if err != nil {
				return fmt.Errorf("reading %s: %w", p, err)
			}
			local = append(local, f)
		}

		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		mgr, err := newManager(cfg)
		if err != nil {
			return err
		}

		mgr.Initialize(cmd.Context())
		printStep("Uploading %d file(s)...", len(local))
		results := mgr.AddFiles(cmd.Context(), local).Wait()
		renderFiles(cmd.OutOrStdout(), mgr.Files())

		var failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(results))
		}
		printSuccess("Uploaded %d file(s)", len(results))
		return nil
	},
}

var filesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the backend's document collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		mgr, err := newManager(cfg)
		if err != nil {
			return err
		}
		return mgr.ClearAll(cmd.Context())
	},
}

var filesIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest every uploaded file into the backend's index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		mgr, err := newManager(cfg)
		if err != nil {
			return err
		}

		mgr.Initialize(cmd.Context())
		printStep("Ingesting...")
		err = mgr.IngestAll(cmd.Context())
		if errors.Is(err, documents.ErrNoFiles) {
			return nil
		}
		return err
	},
}

func init() {
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesClearCmd)
	filesCmd.AddCommand(filesIngestCmd)
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the backend about your documents",
	Long: `Start an interactive chat. Type a message and press enter; /quit exits.

Examples:
  docchat chat
  docchat chat --once "What does the report say about revenue?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetString("once")

		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		session := chat.NewSession(newBackendClient(cfg))
		out := cmd.OutOrStdout()

		if once != "" {
			reply, err := session.SendMessage(cmd.Context(), once)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, awaitReply(reply).Text)
			return nil
		}

		fmt.Fprintln(out, colorize(colorBold, "docchat")+" (type /quit to exit)")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, colorize(colorGreen, "you> "))
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := scanner.Text()
			if strings.TrimSpace(line) == "/quit" {
				return nil
			}

			session.SetInput(line)
			reply, err := session.Submit(cmd.Context())
			if errors.Is(err, chat.ErrEmptyMessage) {
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, colorize(colorCyan, "bot> ")+awaitReply(reply).Text)
		}
	},
}

// awaitReply shows a progress hint on stderr while the reply is pending.
func awaitReply(r *chat.Reply) chat.Message {
	select {
	case <-r.Done():
	case <-time.After(300 * time.Millisecond):
		printStep("Thinking...")
	}
	return r.Wait()
}

func init() {
	chatCmd.Flags().String("once", "", "send a single message, print the reply and exit")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend reachability and effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func showStatus(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(cfg.Backend.BaseURL, "/") + "/health")
	if err != nil {
		printStatus("Backend", "not reachable at %s", cfg.Backend.BaseURL)
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Backend", "running at %s", cfg.Backend.BaseURL)
		} else {
			printStatus("Backend", "error (HTTP %d)", resp.StatusCode)
		}
		if stats, err := newBackendClient(cfg).IndexStats(ctx); err == nil {
			printStatus("Index", "%d document(s), %d chunk(s)", len(stats.Documents), stats.Chunks)
		} else {
			printStatus("Index", "unavailable")
		}
	}

	printStatus("Timeout", "%s", cfg.RequestTimeout())
	printStatus("Clear policy", "%s", cfg.Documents.ClearPolicy)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Config", "%s", config.Location())
	if cfg.Answer.APIKey != "" {
		printStatus("Answers", "%s via %s", cfg.Answer.Model, cfg.Answer.BaseURL)
	} else {
		printStatus("Answers", "extractive (no answer API key)")
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
