package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/eliteGoblin/ultrafont/internal/domain"
	"github.com/eliteGoblin/ultrafont/internal/i18n"
	"github.com/eliteGoblin/ultrafont/internal/usecase"
)

// eventPrinter renders task events for a human. On a terminal the install
// progress line is redrawn in place; otherwise every event gets its own line.
type eventPrinter struct {
	w       io.Writer
	tty     bool
	tr      *i18n.Translator
	inPlace bool // a progress line is waiting to be overwritten
}

func newEventPrinter(w io.Writer, tr *i18n.Translator) *eventPrinter {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &eventPrinter{w: w, tty: tty, tr: tr}
}

// Print writes one event.
func (p *eventPrinter) Print(ev usecase.Event) {
	switch ev.Type {
	case usecase.EventAnalyzed:
		if ev.Record != nil {
			p.line(fmt.Sprintf("  %-40s %s", recordTitle(*ev.Record), p.recordStatus(*ev.Record)))
		}
	case usecase.EventProgress:
		if ev.Progress == nil {
			return
		}
		msg := fmt.Sprintf("[%3d%%] %s", ev.Progress.Percent(), ev.Progress.FileName)
		if p.tty {
			fmt.Fprintf(p.w, "\r\033[K%s", msg)
			p.inPlace = true
			return
		}
		p.line(msg)
	case usecase.EventOutcome:
		if ev.Outcome == nil {
			return
		}
		status := p.tr.T(i18n.KeyInstalled)
		if !ev.Outcome.Succeeded {
			status = p.tr.T(i18n.KeyFailed)
		}
		p.line(fmt.Sprintf("  %-40s %s", filepath.Base(ev.Outcome.Path), status))
	case usecase.EventDownloaded:
		if ev.Download == nil {
			return
		}
		if ev.Download.LocalPath == "" {
			p.line(fmt.Sprintf("  %s: %s (%v)", ev.Download.URL, p.tr.T(i18n.KeyFailed), ev.Err))
			return
		}
		p.line("  " + p.tr.T(i18n.KeyDownloadSuccess, ev.Download.LocalPath))
	case usecase.EventFound:
		p.line("  " + ev.Path)
	case usecase.EventFinished:
		if p.inPlace {
			fmt.Fprintln(p.w)
			p.inPlace = false
		}
	}
}

func (p *eventPrinter) line(s string) {
	if p.inPlace {
		fmt.Fprint(p.w, "\r\033[K")
		p.inPlace = false
	}
	fmt.Fprintln(p.w, s)
}

func (p *eventPrinter) recordStatus(r domain.FontRecord) string {
	switch {
	case !r.Valid:
		return p.tr.T(i18n.KeyInvalid)
	case r.Installed:
		return p.tr.T(i18n.KeyAlreadyInstalled)
	default:
		return p.tr.T(i18n.KeyReady)
	}
}

// printInstallSummary reports the install count, and the shell restart
// only when one actually happened.
func printInstallSummary(w io.Writer, tr *i18n.Translator, count int, restarted bool) {
	fmt.Fprintf(w, "\n%s: %s\n", tr.T(i18n.KeySuccessTitle), tr.T(i18n.KeySuccessMsg, count))
	if restarted {
		fmt.Fprintln(w, tr.T(i18n.KeyRestarted))
	}
}

// recordTitle is "Name (Style)" or the file name when analysis failed.
func recordTitle(r domain.FontRecord) string {
	name := r.Metadata.Name
	if name == "" {
		name = filepath.Base(r.Path)
	}
	if r.Metadata.Style != "" && !strings.Contains(name, r.Metadata.Style) {
		name += " (" + r.Metadata.Style + ")"
	}
	return name
}
