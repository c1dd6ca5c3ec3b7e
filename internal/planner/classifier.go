package planner

import (
	"fmt"
	"strings"
)

// Classifier decides what kind of campaign element an unknown mention
// refers to, given the surrounding script text. Implementations return
// one of "npc", "location", "item" or "custom".
type Classifier interface {
	Classify(mention, window string) string
}

// KeywordClassifier is the default lexical heuristic. It looks for
// speech verbs, movement/place words, and acquisition words in the
// window around the mention.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

var (
	npcKeywords      = []string{"speaks", "says", "asks", "tells", "whispers", "warns"}
	locationKeywords = []string{"location", "enters", "arrives", "travels", "inside the", "streets of"}
	itemKeywords     = []string{"treasure", "finds", "found", "item", "artifact", "relic"}
)

func (KeywordClassifier) Classify(_, window string) string {
	lower := strings.ToLower(window)
	switch {
	case containsAny(lower, npcKeywords):
		return "npc"
	case containsAny(lower, locationKeywords):
		return "location"
	case containsAny(lower, itemKeywords):
		return "item"
	default:
		return "custom"
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func suggestionFor(gapType, name string) string {
	switch gapType {
	case "npc":
		return fmt.Sprintf("Introduce %q as an entity via record_world_state, or stage a context shard describing who they are.", name)
	case "location":
		return fmt.Sprintf("Add %q to the campaign graph as a location before running the session.", name)
	case "item":
		return fmt.Sprintf("Track %q as an item entity so later sessions stay consistent about who holds it.", name)
	default:
		return fmt.Sprintf("Review %q and add it to the campaign graph if it matters beyond this session.", name)
	}
}
