package ui

import (
	"fmt"
	"strings"

	"critbot/internal/settings"
)

func (m Model) View() string {
	var b strings.Builder
	s := m.styles

	b.WriteString(s.Header.Render("critbot settings"))
	b.WriteString("  ")
	if m.st.Enabled {
		b.WriteString(s.On.Render("● watching"))
	} else {
		b.WriteString(s.Off.Render("○ paused"))
	}
	b.WriteString("\n")

	for f := field(0); f < fieldCount; f++ {
		switch f {
		case fieldEnabled:
			b.WriteString(s.Section.Render("Detection") + "\n")
		case fieldFactual:
			b.WriteString(s.Section.Render("Categories") + "\n")
		case fieldAutoGenerate:
			b.WriteString(s.Section.Render("Generation") + "\n")
		}
		b.WriteString(m.row(f))
		b.WriteString("\n")
	}

	b.WriteString(s.Section.Render("Statistics") + "\n")
	b.WriteString(s.Box.Render(statsLine(m.stats)))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(s.Error.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(s.Success.Render(m.status))
	case !m.loaded:
		b.WriteString(s.Muted.Render("Loading..."))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) row(f field) string {
	s := m.styles
	cursor := "  "
	label := s.Label.Render(fieldLabels[f])
	if f == m.cursor {
		cursor = s.Selected.Render("> ")
		label = s.Selected.Inherit(s.Label).Render(fieldLabels[f])
	}
	if m.editing && f == m.cursor {
		return cursor + label + m.input.View()
	}
	return cursor + label + m.value(f)
}

func (m Model) value(f field) string {
	s := m.styles
	onOff := func(v bool) string {
		if v {
			return s.On.Render("on")
		}
		return s.Off.Render("off")
	}
	switch f {
	case fieldEnabled:
		return onOff(m.st.Enabled)
	case fieldDelay:
		return s.Value.Render(fmt.Sprintf("%ds", m.st.PopupDelaySeconds))
	case fieldFactual:
		return onOff(m.st.Categories.Factual)
	case fieldLogical:
		return onOff(m.st.Categories.Logical)
	case fieldPractical:
		return onOff(m.st.Categories.Practical)
	case fieldAutoGenerate:
		v := onOff(m.st.AutoGenerate)
		if m.st.AutoGenerate && m.st.APIKey == "" {
			v += s.Muted.Render("  (needs an API key; showing prompts)")
		}
		return v
	case fieldProvider:
		return s.Value.Render(m.st.Provider)
	case fieldModel:
		if m.st.Model == "" {
			return s.Muted.Render("default (" + m.defaultModel() + ")")
		}
		return s.Value.Render(m.st.Model)
	case fieldAPIKey:
		if m.st.APIKey == "" {
			return s.Muted.Render("not set")
		}
		return s.Value.Render(m.st.Redacted().APIKey)
	case fieldAutoSend:
		return onOff(m.st.AutoSend)
	}
	return ""
}

func statsLine(u settings.UsageStats) string {
	line := fmt.Sprintf("Prompts shown %d   Responses %d", u.TotalPrompts, u.UserResponses)
	if u.TotalPrompts > 0 {
		line += fmt.Sprintf("   Engagement %.0f%%", 100*float64(u.UserResponses)/float64(u.TotalPrompts))
	}
	return line
}
