package cli

import (
	"io"
	"math"
	"os"
	"strings"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/domain"
)

type tone string

const (
	toneReset  tone = "\x1b[0m"
	toneDim    tone = "\x1b[2m"
	toneKey    tone = "\x1b[1m\x1b[38;5;51m"
	toneGood   tone = "\x1b[1m\x1b[38;5;82m"
	toneWarn   tone = "\x1b[1m\x1b[38;5;214m"
	toneBad    tone = "\x1b[1m\x1b[38;5;196m"
	toneAccent tone = "\x1b[1m\x1b[38;5;201m"
)

// renderer colors human output. Color is off for JSON, for NO_COLOR and for
// anything that is not a terminal.
type renderer struct {
	color bool
}

func newRenderer(out io.Writer, asJSON bool) renderer {
	return renderer{color: !asJSON && colorAllowed() && isTerminal(out)}
}

func colorAllowed() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term != "" && term != "dumb"
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func (r renderer) paint(t tone, value string) string {
	if !r.color || value == "" {
		return value
	}
	return string(t) + value + string(toneReset)
}

func (r renderer) key(value string) string    { return r.paint(toneKey, value) }
func (r renderer) ok(value string) string     { return r.paint(toneGood, value) }
func (r renderer) warn(value string) string   { return r.paint(toneWarn, value) }
func (r renderer) err(value string) string    { return r.paint(toneBad, value) }
func (r renderer) accent(value string) string { return r.paint(toneAccent, value) }
func (r renderer) dim(value string) string    { return r.paint(toneDim, value) }

func (r renderer) state(value string) string {
	switch domain.RunState(value) {
	case domain.RunCompleted:
		return r.ok(value)
	case domain.RunAborted:
		return r.err(value)
	case domain.RunExecuting:
		return r.warn(value)
	default:
		return r.accent(value)
	}
}

func (r renderer) status(value string) string {
	switch executor.Status(value) {
	case executor.StatusCreated:
		return r.ok(value)
	case executor.StatusFailed:
		return r.err(value)
	case executor.StatusNotRun:
		return r.warn(value)
	default:
		return r.dim(value)
	}
}

// bar draws applied operations out of the plan, for example [=====-----].
func (r renderer) bar(width int, ratio float64) string {
	if width <= 0 {
		width = 20
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := min(int(math.Round(ratio*float64(width))), width)
	return "[" + r.ok(strings.Repeat("=", filled)) + r.dim(strings.Repeat("-", width-filled)) + "]"
}
