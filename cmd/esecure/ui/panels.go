package ui

import (
	"strconv"
	"strings"

	"esecure/internal/analyzer"
	"esecure/internal/session"
)

// ScoreText formats a score out of 100, or "N/A" when absent.
func ScoreText(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*score, 'f', -1, 64) + "/100"
}

// RenderResult draws the score and feedback panel.
func RenderResult(s Styles, res analyzer.Result, r Renderer) string {
	header := s.ScoreLabel.Render("Safety Score: ") + s.ScoreValue.Render(ScoreText(res.Score))
	body := strings.TrimRight(SafeRenderMarkdown(r, res.Feedback), "\n")
	if r == nil {
		body = s.Feedback.Render(body)
	}
	return s.ResultPanel.Render(header + "\n" + body)
}

// RenderError draws the error panel.
func RenderError(s Styles, msg string) string {
	return s.ErrorPanel.Render(s.ErrorTitle.Render("Error:") + "\n" + msg)
}

// RenderPanel draws whichever panel the state calls for. Idle and Loading
// have none.
func RenderPanel(s Styles, st session.State, r Renderer) string {
	switch st.Status {
	case session.StatusSucceeded:
		if st.Result == nil {
			return ""
		}
		return RenderResult(s, *st.Result, r)
	case session.StatusFailed:
		return RenderError(s, st.Err)
	default:
		return ""
	}
}

// PlainPanel is the uncoloured form of RenderPanel used for piped output.
func PlainPanel(st session.State) string {
	switch st.Status {
	case session.StatusSucceeded:
		if st.Result == nil {
			return ""
		}
		return "Safety Score: " + ScoreText(st.Result.Score) + "\n" + st.Result.Feedback + "\n"
	case session.StatusFailed:
		return "Error:\n" + st.Err + "\n"
	default:
		return ""
	}
}
