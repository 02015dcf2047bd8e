package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// form is a vertical list of labelled text inputs with one focused field.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
}

type formField struct {
	label       string
	placeholder string
	value       string
	secret      bool
	charLimit   int
}

func newForm(fields ...formField) form {
	f := form{
		labels: make([]string, len(fields)),
		inputs: make([]textinput.Model, len(fields)),
	}
	for i, field := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = field.placeholder
		in.CharLimit = 256
		if field.charLimit > 0 {
			in.CharLimit = field.charLimit
		}
		if field.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		in.SetValue(field.value)
		in.Width = 40
		f.labels[i] = field.label
		f.inputs[i] = in
	}
	return f
}

// Focus focuses field i and blurs the rest.
func (f *form) Focus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = ((i % len(f.inputs)) + len(f.inputs)) % len(f.inputs)
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *form) Next() tea.Cmd { return f.Focus(f.focus + 1) }
func (f *form) Prev() tea.Cmd { return f.Focus(f.focus - 1) }

// Update forwards msg to the focused input.
func (f *form) Update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// Value returns the trimmed value of field i.
func (f form) Value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

// RawValue returns field i untrimmed, for passwords.
func (f form) RawValue(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return f.inputs[i].Value()
}

// handleNav applies tab/shift+tab/up/down focus moves. ok reports whether
// the key was consumed.
func (f *form) handleNav(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		return f.Next(), true
	case "shift+tab", "up":
		return f.Prev(), true
	}
	return nil, false
}

func (f *form) SetWidth(w int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(w, 10)
	}
}

// View renders the form with the given styles.
func (f form) View(styles Styles, title string) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")

	labelWidth := 0
	for _, l := range f.labels {
		labelWidth = max(labelWidth, len(l))
	}
	for i, in := range f.inputs {
		label := f.labels[i] + strings.Repeat(" ", labelWidth-len(f.labels[i]))
		if i == f.focus {
			b.WriteString(styles.AccentText.Render("› " + label))
		} else {
			b.WriteString(styles.MutedText.Render("  " + label))
		}
		b.WriteString("  ")
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab/↑↓ move  enter submit  esc cancel"))
	return b.String()
}
