package appreciation

import (
	"fmt"
	"math/rand"
	"time"
)

// Message is an appreciation shown after a solve
type Message struct {
	Text     string     `json:"text"`
	Type     MomentType `json:"type"`
	Evidence Evidence   `json:"evidence"`
}

// Generator creates appreciation messages from moments
type Generator struct {
	templates map[MomentType][]string
	pick      func(n int) int
}

// NewGenerator creates a generator with the default templates
func NewGenerator() *Generator {
	return &Generator{templates: defaultTemplates(), pick: rand.Intn}
}

// Generate creates the message for a moment, or nil for an unknown type.
func (g *Generator) Generate(m *Moment) *Message {
	if m == nil {
		return nil
	}
	templates := g.templates[m.Type]
	if len(templates) == 0 {
		return nil
	}
	return &Message{
		Text:     g.format(templates[g.pick(len(templates))], m),
		Type:     m.Type,
		Evidence: m.Evidence,
	}
}

func (g *Generator) format(template string, m *Moment) string {
	e := m.Evidence
	switch m.Type {
	case MomentMinimalHints:
		if e.HintsUsed == 1 {
			return fmt.Sprintf(template, "just one hint")
		}
		return fmt.Sprintf(template, fmt.Sprintf("only %d hints", e.HintsUsed))
	case MomentQuickSolve, MomentPersistence:
		return fmt.Sprintf(template, e.Elapsed)
	case MomentAboveRating:
		return fmt.Sprintf(template, e.Difficulty, e.Rating)
	default:
		return template
	}
}

func defaultTemplates() map[MomentType][]string {
	return map[MomentType][]string{
		MomentNoHintsNeeded: {
			"Accepted without any hints. That shows solid understanding.",
			"No hints needed. Your independent problem-solving is growing.",
		},
		MomentMinimalHints: {
			"Accepted with %s. You're relying less on guidance.",
			"Solved using %s. That shows growing confidence.",
		},
		MomentQuickSolve: {
			"Accepted in %s, well inside the time limit.",
			"Solved in %s. You're building contest speed.",
		},
		MomentAboveRating: {
			"A %d problem at rating %d. You're solving above your level.",
			"Difficulty %d against your %d rating. That's a stretch you made.",
		},
		MomentReviewRecalled: {
			"Solved again on review. The idea stuck.",
			"Review done. Recalling a solution is how it becomes yours.",
		},
		MomentPersistence: {
			"Accepted after %s. Finishing past the limit still counts.",
			"You kept going for %s and got it. That persistence pays off.",
		},
	}
}

// ShouldAppreciate reports whether a moment of the given priority may be
// shown minutesSince minutes after the previous message.
func ShouldAppreciate(minutesSince, momentPriority int) bool {
	switch {
	case momentPriority >= 8:
		return true
	case momentPriority >= 5:
		return minutesSince >= 30
	default:
		return minutesSince >= 60
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "under a minute"
	}
	hours, mins := int(d.Hours()), int(d.Minutes())%60
	switch {
	case hours == 0 && mins == 1:
		return "1 minute"
	case hours == 0:
		return fmt.Sprintf("%d minutes", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
