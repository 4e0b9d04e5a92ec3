// Package rendering builds LaTeX documents for resumes and cover letters and
// compiles them to PDF.
package rendering

import "strings"

// EscapeLaTeX escapes the characters LaTeX treats specially:
// \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{':
			result.WriteString(`\{`)
		case '}':
			result.WriteString(`\}`)
		case '$':
			result.WriteString(`\$`)
		case '&':
			result.WriteString(`\&`)
		case '%':
			result.WriteString(`\%`)
		case '#':
			result.WriteString(`\#`)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '_':
			result.WriteString(`\_`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// EscapeText escapes plain text and keeps its line structure: blank lines
// separate paragraphs, single line breaks become \newline.
func EscapeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")

	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		lines := strings.Split(strings.Trim(p, "\n"), "\n")
		for i, line := range lines {
			lines[i] = EscapeLaTeX(line)
		}
		out = append(out, strings.Join(lines, "\\newline\n"))
	}
	return strings.Join(out, "\n\n")
}
