package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Wyydra/geosync/internal/client"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#22d3ee")
	success = lipgloss.Color("#10B981")
	warning = lipgloss.Color("#F59E0B")
	failure = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")
)

// printer writes one styled status line per view change.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	room   lipgloss.Style
	active lipgloss.Style
	idle   lipgloss.Style
	locked lipgloss.Style
	faint  lipgloss.Style
	errs   lipgloss.Style
}

func newPrinter(out io.Writer) *printer {
	r := lipgloss.NewRenderer(out)
	return &printer{
		out:    out,
		room:   r.NewStyle().Foreground(accent).Bold(true),
		active: r.NewStyle().Foreground(success),
		idle:   r.NewStyle().Foreground(warning),
		locked: r.NewStyle().Foreground(failure),
		faint:  r.NewStyle().Foreground(muted),
		errs:   r.NewStyle().Foreground(failure).Bold(true),
	}
}

func (p *printer) Snapshot(s client.Snapshot) {
	p.line(p.render(s))
}

func (p *printer) Info(format string, args ...any) {
	p.line(p.faint.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Error(err error) {
	p.line(p.errs.Render("error: " + err.Error()))
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *printer) render(s client.Snapshot) string {
	var b strings.Builder

	if !s.Joined {
		b.WriteString(p.faint.Render("[not in a room]"))
	} else {
		b.WriteString(p.room.Render(fmt.Sprintf("[%s %s]", s.RoomID, s.Role)))
	}

	fmt.Fprintf(&b, " view %s z%g", formatLatLng(s.Center.Lat, s.Center.Lng), s.Center.Zoom)

	if s.TrackerActive {
		b.WriteString(" " + p.active.Render("tracker active"))
	} else {
		b.WriteString(" " + p.idle.Render("tracker inactive"))
	}
	if !s.Interactive() {
		b.WriteString(" " + p.locked.Render("locked"))
	}
	if s.LastConfirmed != nil {
		b.WriteString(" confirmed " + formatPoint(s.LastConfirmed))
	}
	if s.LiveDrag != nil {
		b.WriteString(" drag " + formatPoint(s.LiveDrag))
	}
	b.WriteString(" " + p.faint.Render("you "+formatPoint(&s.Origin)))
	return b.String()
}

func formatPoint(p *domain.LatLng) string {
	return formatLatLng(p.Lat, p.Lng)
}

func formatLatLng(lat, lng float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lng)
}
