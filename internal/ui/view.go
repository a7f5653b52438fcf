package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/state"
)

const (
	maxCardWidth = 64
	minCardWidth = 24
	dice         = "⚄"
)

// renderMain lays out the card, the prompt and the help line.
func (m Model) renderMain() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(m.renderCard(styles))
	b.WriteString("\n\n")

	switch {
	case m.prompting:
		b.WriteString(m.idInput.View())
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(styles.WarningText.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(styles.Footer.Render(m.help.View(m.keys)))

	content := b.String()
	if m.width <= 0 || m.height <= 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content,
		lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.Background)))
}

func (m Model) cardWidth() int {
	w := maxCardWidth
	if m.width > 0 && m.width-4 < w {
		w = m.width - 4
	}
	if w < minCardWidth {
		w = minCardWidth
	}
	return w
}

// renderCard picks the skeleton, error or content card.
func (m Model) renderCard(styles Styles) string {
	snap := m.snapshot
	width := m.cardWidth()
	inner := width - 8 // border plus padding

	var body string
	switch {
	case !snap.IsInitialized && snap.Phase == state.PhaseFailed:
		body = m.renderErrorBody(styles, inner)
	case !snap.IsInitialized && (snap.Phase == state.PhaseLoading || m.busy):
		body = m.renderSkeletonBody(styles, inner)
	default:
		body = m.renderAdviceBody(styles, inner)
	}

	card := styles.Card
	if snap.IsAnimating || m.busy {
		card = styles.CardBusy
	}
	return card.Width(width - 2).Render(body)
}

func (m Model) renderAdviceBody(styles Styles, inner int) string {
	snap := m.snapshot
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	label := styles.Label.Render(adviceLabel(snap.Current))

	quoteStyle := styles.Quote
	if snap.IsAnimating {
		quoteStyle = styles.QuoteFading
	}
	quote := quoteStyle.Width(inner).Align(lipgloss.Center).Render(quoteText(snap.Current.Text))

	lines := []string{
		center.Render(label),
		"",
		quote,
		"",
		center.Render(m.renderDivider(styles, inner)),
		"",
		center.Render(m.renderDice(styles)),
	}

	if status := m.renderStatus(styles); status != "" {
		lines = append(lines, "", center.Render(status))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSkeletonBody(styles Styles, inner int) string {
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	bar := func(w int) string {
		if w > inner {
			w = inner
		}
		return styles.Skeleton.Render(strings.Repeat("▀", w))
	}

	lines := []string{
		center.Render(styles.Label.Render("ADVICE #…")),
		"",
		center.Render(bar(inner * 3 / 4)),
		center.Render(bar(inner / 2)),
		"",
		center.Render(m.renderDivider(styles, inner)),
		"",
		center.Render(m.spinner.View() + styles.MutedText.Render(" fetching advice")),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderErrorBody(styles Styles, inner int) string {
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	lines := []string{
		center.Render(styles.DangerText.Render(classifyError(m.snapshot.LastError))),
		"",
		center.Render(styles.MutedText.Render("press r to retry")),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDivider(styles Styles, inner int) string {
	side := (inner - 6) / 2
	if side > 18 {
		side = 18
	}
	if side < 1 {
		side = 1
	}
	line := strings.Repeat("─", side)
	return styles.FaintText.Render(line) + styles.Label.Render("  ▌▌  ") + styles.FaintText.Render(line)
}

func (m Model) renderDice(styles Styles) string {
	if m.busy || m.snapshot.IsAnimating {
		return styles.DiceBusy.Render(m.spinner.View())
	}
	return styles.Dice.Render(dice)
}

// renderStatus explains a failed request below the advice that stayed on
// screen, or marks an answer served from a prefetched slot.
func (m Model) renderStatus(styles Styles) string {
	snap := m.snapshot
	if snap.Phase == state.PhaseFailed && snap.LastError != nil {
		return styles.DangerText.Render(classifyError(snap.LastError)) +
			styles.MutedText.Render(" · press r to retry")
	}
	if snap.UsedCache && !snap.IsAnimating {
		return styles.SuccessText.Render("instant")
	}
	return ""
}

func adviceLabel(a adviceslip.Advice) string {
	return fmt.Sprintf("ADVICE #%d", a.ID)
}

func quoteText(text string) string {
	return "“" + strings.TrimSpace(text) + "”"
}

// classifyError maps a failure to a short message for the card.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, adviceslip.ErrNotFound):
		return "No advice found with that id."
	case errors.Is(err, adviceslip.ErrRateLimited):
		return "Too many requests, please wait a moment."
	case errors.Is(err, adviceslip.ErrTimeout):
		return "The advice service took too long to answer."
	case errors.Is(err, adviceslip.ErrTransport):
		return "Could not reach the advice service."
	default:
		return "Something went wrong loading the advice."
	}
}
