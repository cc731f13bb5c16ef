package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical/cropcare/internal/conversation"
	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/session"
	"github.com/spherical/cropcare/internal/ui"
)

// Status lines shown while long calls run.
const (
	msgExtracting       = "Extracting text…"
	msgGenerating       = "Generating analysis…"
	msgThinking         = "Thinking..."
	msgAnalyzingImage   = "Analyzing image..."
	msgVisualPDF        = "Visually analyzing PDF pages..."
	msgSynthesizing     = "Generating audio..."
	progressChannelSize = 64
)

// readArtifact loads a file from disk as an upload.
func readArtifact(path string) (domain.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Artifact{}, domain.IOError("Failed to read "+path, err)
	}
	return domain.Artifact{Name: filepath.Base(path), Data: data}, nil
}

// renderProgressBar draws a progress bar for OCR fallback events until
// events is closed. The returned channel closes when rendering is done.
func renderProgressBar(events <-chan domain.ProgressEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var bar *ui.ProgressBar
		for ev := range events {
			switch ev.Type {
			case domain.EventStart:
				bar = ui.NewProgressBar(int64(ev.Total), msgVisualPDF)
			case domain.EventPageComplete, domain.EventError:
				if bar != nil {
					bar.Set(int64(ev.Completed))
				}
				if ev.Type == domain.EventError {
					ui.Debug("page %d: %s", ev.PageNumber, ev.Message)
				}
			case domain.EventComplete:
				if bar != nil {
					bar.Finish()
				}
			}
		}
	}()
	return done
}

// followWithSpinner keeps a spinner message in step with OCR fallback events.
func followWithSpinner(s *ui.Spinner, events <-chan domain.ProgressEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Type {
			case domain.EventStart, domain.EventPageComplete, domain.EventError:
				s.UpdateMessage(fmt.Sprintf("%s %d/%d (%.0f%%)", msgVisualPDF, ev.Completed, ev.Total, ev.Fraction()*100))
			case domain.EventComplete:
				s.UpdateMessage(msgGenerating)
			}
		}
	}()
	return done
}

// printStream writes reply chunks to stdout until chunks is closed, stopping
// the spinner at the first one. It reports whether anything was printed.
func printStream(s *ui.Spinner, chunks <-chan string) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		started := false
		for chunk := range chunks {
			if !started {
				s.Stop()
				ui.ChatPrefix(string(session.RoleAssistant))
				started = true
			}
			fmt.Fprint(os.Stdout, chunk)
		}
		if started {
			fmt.Fprintln(os.Stdout)
		}
		done <- started
	}()
	return done
}

func printNotices(notices []conversation.Notice) {
	for _, n := range notices {
		switch n.Level {
		case conversation.LevelError:
			ui.Error("%s", n.Message)
		case conversation.LevelWarning:
			ui.Warning("%s", n.Message)
		default:
			ui.Info("%s", n.Message)
		}
	}
}
