package command

import (
	"strings"
	"unicode/utf8"
)

// DefaultPrefix marks a message as a command.
const DefaultPrefix = "Bot,"

// MaxReplyLength is the longest single reply sent before splitting.
const MaxReplyLength = 4000

// Parsed is a command line split into its name and arguments.
type Parsed struct {
	Name string
	Args []string
}

// Parse reads a command from text. The prefix must open the message
// (case sensitive); the command name is lowercased. Single or double
// quotes group words into one argument.
func Parse(prefix, text string) (Parsed, bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Parsed{}, false
	}
	args := splitArgs(strings.TrimSpace(text[len(prefix):]))
	if len(args) == 0 {
		return Parsed{}, false
	}
	return Parsed{Name: strings.ToLower(args[0]), Args: args[1:]}, true
}

// splitArgs breaks text on spaces outside quotes. An unterminated quote
// runs to the end of the text.
func splitArgs(text string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range text {
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && r == ' ':
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// Split breaks text into chunks of at most max characters, cutting on line
// boundaries. Lines longer than max are cut hard.
func Split(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > max {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:max]))
			line = string(r[max:])
		}
		ln := utf8.RuneCountInString(line)
		if n+ln+1 > max {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
			n++
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return chunks
}
