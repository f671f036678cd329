package hint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

const hintSystem = `You are a competitive programming coach. You never give full solutions or code.
You write short progressive hints: the first only points at the key observation, each later
hint reveals a little more, and the last one outlines the algorithm without code.`

const translateSystem = `You translate competitive programming problem statements.
Keep every number, variable name, constraint and formula unchanged. Keep the section
structure. Output only the translation.`

// maxStatementRunes bounds the statement text sent to the model.
const maxStatementRunes = 6000

func hintPrompt(p *domain.Problem, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem %s: %s\n", p.ID, p.Title)
	if p.Difficulty != nil {
		fmt.Fprintf(&b, "Estimated difficulty: %d\n", *p.Difficulty)
	}
	b.WriteString("\nStatement:\n")
	b.WriteString(truncate(p.Statement, maxStatementRunes))
	b.WriteString("\n")

	for i, s := range p.Samples {
		fmt.Fprintf(&b, "\nSample input %d:\n%s\nSample output %d:\n%s\n", i+1, s.Input, i+1, s.Output)
	}
	if p.Editorial != "" {
		b.WriteString("\nOfficial editorial (do not quote it):\n")
		b.WriteString(truncate(p.Editorial, maxStatementRunes))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nWrite exactly %d hints as a numbered list (1. ... %d. ...), one hint per item.", n, n)
	return b.String()
}

func translatePrompt(p *domain.Problem, lang string) string {
	return fmt.Sprintf("Translate into the language with code %q.\n\n%s\n\n%s", lang, p.Title, truncate(p.Statement, maxStatementRunes))
}

var listItem = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)

// parseHints reads a numbered list. Lines that do not start a new item
// continue the previous one. It fails when fewer than n items are found and
// drops any beyond n.
func parseHints(text string, n int) ([]string, error) {
	var hints []string
	for _, line := range strings.Split(text, "\n") {
		if m := listItem.FindStringSubmatch(line); m != nil {
			hints = append(hints, strings.TrimSpace(m[2]))
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || len(hints) == 0 {
			continue
		}
		hints[len(hints)-1] += " " + line
	}

	if len(hints) < n {
		return nil, fmt.Errorf("expected %d hints, model returned %d", n, len(hints))
	}
	return hints[:n], nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
