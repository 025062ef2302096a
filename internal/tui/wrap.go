package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/anzan/internal/model"
)

const (
	correctMark = '●'
	missMark    = '✕'
	timeoutMark = '◌'
	pendingMark = '·'
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildOutcomeStrip renders one mark per answered round followed by pending slots.
func buildOutcomeStrip(history []model.AnswerOutcome, pending int) []styledRune {
	total := len(history) + pending
	if total == 0 {
		return nil
	}
	out := make([]styledRune, 0, total*2-1)
	for i := 0; i < total; i++ {
		if i > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		mark, style := pendingMark, pendingStyle
		if i < len(history) {
			switch o := history[i]; {
			case o.Correct:
				mark, style = correctMark, correctStyle
			case o.Timeout:
				mark, style = timeoutMark, timeoutStyle
			default:
				mark, style = missMark, incorrectStyle
			}
		}
		out = append(out, styledRune{
			s:     style.Render(string(mark)),
			width: runewidth.RuneWidth(mark),
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
