package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spherical/cropcare/internal/conversation"
	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/session"
	"github.com/spherical/cropcare/internal/ui"
)

var (
	chatLanguage string
	chatFile     string
	chatSpeakOut string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive CropCare session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := buildApp(ctx, cfg, "console")
		if err != nil {
			return err
		}
		defer a.Close()

		c := &chatSession{
			app:    a,
			sess:   session.New(uuid.NewString()),
			prompt: ui.NewPrompter(os.Stdin, os.Stdout),
		}
		return c.run(ctx)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", "", "response language (English, हिंदी, తెలుగు, മലയാളം or en/hi/te/ml)")
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "document or image to analyze on start")
	chatCmd.Flags().StringVar(&chatSpeakOut, "speak-out", "summary.mp3", "default output path for /speak")
}

type chatSession struct {
	app    *app
	sess   *session.Session
	prompt *ui.Prompter
}

func (c *chatSession) run(ctx context.Context) error {
	ui.Section("🌾 CropCare")

	if err := c.chooseLanguage(chatLanguage); err != nil {
		return err
	}
	if chatFile != "" {
		c.upload(ctx, chatFile)
	}
	c.help()

	for {
		line, err := c.prompt.Prompt("›")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		command, rest := splitCommand(line)
		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			c.help()
		case "/upload":
			c.upload(ctx, rest)
		case "/doc":
			c.askDocument(ctx, rest)
		case "/ask":
			c.askGeneral(ctx, rest)
		case "/speak":
			c.speak(ctx, rest)
		case "/summary":
			c.showSummary()
		case "/history":
			c.history()
		case "/language":
			c.app.flow.ChangeLanguage(c.sess)
			if err := c.chooseLanguage(""); err != nil {
				return err
			}
		case "":
			if c.sess.HasSummary() {
				c.askDocument(ctx, rest)
			} else {
				c.askGeneral(ctx, rest)
			}
		default:
			ui.Error("Unknown command %s; type /help", command)
		}
	}
}

// splitCommand separates a leading slash command from its argument. Lines
// without a command return an empty command and the whole line.
func splitCommand(line string) (command, rest string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	parts := strings.SplitN(line, " ", 2)
	command = strings.ToLower(parts[0])
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return command, rest
}

func (c *chatSession) chooseLanguage(preset string) error {
	if preset != "" {
		if err := c.app.flow.SelectLanguage(c.sess, preset); err == nil {
			ui.Success("Language: %s", c.sess.Language)
			return nil
		}
		ui.Warning("Unknown language %q", preset)
	}

	labels := make([]string, len(session.Languages))
	for i, l := range session.Languages {
		labels[i] = l.Label()
	}
	idx, err := c.prompt.PromptChoice("Select your language", labels)
	if err != nil {
		return err
	}
	if err := c.app.flow.SelectLanguage(c.sess, session.Languages[idx].Name); err != nil {
		return err
	}
	ui.Success("Language: %s", c.sess.Language)
	return nil
}

func (c *chatSession) help() {
	doc, general := conversation.Examples(c.sess)
	ui.Message("Commands: /upload <file>  /doc <question>  /ask <question>  /speak [out.mp3]  /summary  /history  /language  /quit")
	ui.Message("Plain text asks about the document once one is analyzed, otherwise it is a general question.")
	if len(doc) > 0 {
		ui.Message("Try about a document: %s", strings.Join(doc, " • "))
	}
	if len(general) > 0 {
		ui.Message("Try general questions: %s", strings.Join(general, " • "))
	}
}

func (c *chatSession) upload(ctx context.Context, path string) {
	if path == "" {
		ui.Error("Usage: /upload <file>")
		return
	}
	artifact, err := readArtifact(path)
	if err != nil {
		ui.Error("%v", err)
		return
	}

	message := msgExtracting
	if artifact.IsImage() {
		message = msgAnalyzingImage
	}
	spin := ui.NewSpinner(message)
	events := make(chan domain.ProgressEvent, progressChannelSize)
	followed := followWithSpinner(spin, events)

	spin.Start()
	out, err := c.app.flow.Upload(ctx, c.sess, artifact, events)
	spin.Stop()
	close(events)
	<-followed

	printNotices(out.Notices)
	if err != nil {
		if len(out.Notices) == 0 {
			ui.Error("%v", err)
		}
		return
	}
	c.showSummary()
}

func (c *chatSession) showSummary() {
	if !c.sess.HasSummary() {
		ui.Info("No analysis yet. Use /upload <file>.")
		return
	}
	ui.Box(fmt.Sprintf("Analysis of %s", c.sess.LastUploadName), c.sess.Summary)
}

func (c *chatSession) askDocument(ctx context.Context, q string) {
	c.ask(func(chunks chan<- string) (conversation.ChatOutcome, error) {
		return c.app.flow.AskDocumentStream(ctx, c.sess, q, chunks)
	})
}

func (c *chatSession) askGeneral(ctx context.Context, q string) {
	c.ask(func(chunks chan<- string) (conversation.ChatOutcome, error) {
		return c.app.flow.AskGeneralStream(ctx, c.sess, q, chunks)
	})
}

// ask shows a spinner until the first reply chunk arrives, then prints the
// reply as it streams.
func (c *chatSession) ask(fn func(chunks chan<- string) (conversation.ChatOutcome, error)) {
	spin := ui.NewSpinner(msgThinking)
	chunks := make(chan string, progressChannelSize)
	printed := printStream(spin, chunks)

	spin.Start()
	out, err := fn(chunks)
	close(chunks)
	streamed := <-printed
	spin.Stop()

	if err != nil {
		ui.Error("%v", err)
		return
	}
	if out.Failed {
		printNotices(out.Notices)
		return
	}
	if !streamed {
		ui.ChatLine(string(session.RoleAssistant), out.Reply)
	}
}

func (c *chatSession) speak(ctx context.Context, path string) {
	if path == "" {
		path = chatSpeakOut
	}

	var out conversation.AudioOutcome
	var err error
	ui.WithSpinner(msgSynthesizing, func() {
		out, err = c.app.flow.SpeakSummary(ctx, c.sess)
	})
	if err != nil {
		ui.Error("%v", err)
		return
	}
	printNotices(out.Notices)
	if out.Audio == nil {
		return
	}
	if err := os.WriteFile(path, out.Audio, 0o644); err != nil {
		ui.Error("Failed to write %s: %v", path, err)
		return
	}
	ui.Success("Saved audio to %s", path)
}

func (c *chatSession) history() {
	if len(c.sess.DocumentChat) > 0 {
		ui.Section("Document chat")
		for _, m := range c.sess.DocumentChat {
			ui.ChatLine(string(m.Role), m.Content)
		}
	}
	if len(c.sess.GeneralChat) > 0 {
		ui.Section("General questions")
		for _, m := range c.sess.GeneralChat {
			ui.ChatLine(string(m.Role), m.Content)
		}
	}
}
