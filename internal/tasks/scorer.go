package tasks

import (
	"strings"
	"unicode"
)

// Scorer rates how strongly a task title matches a body of captured
// content. Higher is stronger; zero means no relation.
type Scorer interface {
	Score(taskTitle, content string) int
}

// KeywordScorer is the default bag-of-words heuristic: +3 when the full
// title appears verbatim in the content, +1 for each title word longer
// than three characters found in the content. Both checks are
// case-insensitive.
type KeywordScorer struct{}

var _ Scorer = KeywordScorer{}

func (KeywordScorer) Score(taskTitle, content string) int {
	title := strings.ToLower(strings.TrimSpace(taskTitle))
	body := strings.ToLower(content)
	if title == "" || body == "" {
		return 0
	}
	score := 0
	if strings.Contains(body, title) {
		score += 3
	}
	for _, word := range titleWords(title) {
		if len(word) <= 3 {
			continue
		}
		if strings.Contains(body, word) {
			score++
		}
	}
	return score
}

func titleWords(title string) []string {
	return strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
