// internal/commands/chat.go
package foundrychat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/chat"
	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/markdown"
	"github.com/mwiater/foundrychat/internal/tui"
	"github.com/mwiater/foundrychat/internal/util"
	"github.com/spf13/cobra"
)

const renderWidth = 100

// chatCmd starts the interactive chat, or sends a single prompt when
// --prompt is given.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a model loaded by the service",
	Long: `The 'chat' command opens the interactive chat against the models the service has loaded.
With --prompt it sends one message, prints the reply, and exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		active, err := svc.catalog.ActiveModels(cmd.Context()).Unwrap()
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return fmt.Errorf("the service has no loaded models")
		}

		orch := svc.newOrchestrator()
		if name, _ := cmd.Flags().GetString("model"); name != "" {
			m, ok := findActive(active, name)
			if !ok {
				return fmt.Errorf("model %q is not loaded", name)
			}
			orch.SelectModel(&m)
		}
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read attachment: %w", err)
			}
			orch.AttachFile(filepath.Base(path), data)
		}

		renderer := markdown.NewRenderer(renderWidth)
		prompt, _ := cmd.Flags().GetString("prompt")
		if prompt == "" {
			return tui.StartChat(cmd.Context(), cfg, orch, active, renderer)
		}

		if orch.Snapshot().Model == nil {
			if len(active) > 1 {
				return fmt.Errorf("several models are loaded; choose one with --model")
			}
			orch.SelectModel(&active[0])
		}
		continues, _ := cmd.Flags().GetInt("auto-continue")
		return runOneShot(cmd, orch, prompt, continues, renderer)
	},
}

// runOneShot sends prompt, follows truncated replies up to continues times,
// and prints every record the exchange produced.
func runOneShot(cmd *cobra.Command, orch *chat.Orchestrator, prompt string, continues int, renderer *markdown.Renderer) error {
	ctx := cmd.Context()
	start := len(orch.Snapshot().Records)

	orch.SetInput(prompt)
	if err := orch.SendMessage(ctx); err != nil {
		return err
	}
	for i := 0; i < continues; i++ {
		id := lastTruncatedReply(orch.Snapshot().Records)
		if id == "" {
			break
		}
		logging.LogEvent("chat: auto-continue %d for %s", i+1, id)
		if err := orch.ContinueMessage(ctx, id); err != nil {
			return err
		}
	}

	records := orch.Snapshot().Records[start:]
	if ok, err := writeStructured(cmd, records); ok {
		return err
	}
	printRecords(cmd.OutOrStdout(), records, renderer, GetConfig().MarkdownEnabled())
	return nil
}

func printRecords(out io.Writer, records []chat.Record, renderer *markdown.Renderer, rendered bool) {
	for _, r := range records {
		switch {
		case r.IsUser:
			fmt.Fprintf(out, "%s %s\n", accentText("You:"), r.Text)
		case r.IsError:
			fmt.Fprintln(out, failedText(r.Display))
		default:
			text := util.WrapToWidth(r.Display, renderWidth)
			if rendered {
				text = renderer.RenderOrPlain(r.Text)
			}
			fmt.Fprintln(out, text)
			if r.IsTruncated {
				fmt.Fprintln(out, mutedText("(reply truncated; rerun with --auto-continue)"))
			}
			if r.UsageText != "" {
				fmt.Fprintln(out, mutedText(r.UsageText))
			}
		}
	}
}

func lastTruncatedReply(records []chat.Record) string {
	if n := len(records); n > 0 {
		if r := records[n-1]; !r.IsUser && !r.IsError && r.IsTruncated {
			return r.ID
		}
	}
	return ""
}

func findActive(models []catalog.ActiveModel, id string) (catalog.ActiveModel, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return catalog.ActiveModel{}, false
}

func init() {
	chatCmd.Flags().String("model", "", "loaded model to chat with")
	chatCmd.Flags().String("file", "", "attach a text or image file to the first message")
	chatCmd.Flags().String("prompt", "", "send one message and print the reply instead of opening the chat")
	chatCmd.Flags().Int("auto-continue", 0, "continue a truncated reply up to this many times (with --prompt)")
	rootCmd.AddCommand(chatCmd)
}
