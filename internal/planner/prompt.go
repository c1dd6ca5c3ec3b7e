package planner

import (
	"fmt"
	"strings"

	"lorekeeper/internal/similarity"
	"lorekeeper/internal/store"
)

const planInstructions = `You are a session planner for a tabletop RPG game master. Write a run-ready
session script: an opening scene, two to four middle scenes with stakes and
likely player choices, and a closing beat. Quote NPC dialogue hooks inline.
Stay consistent with the established canon and entity states provided. When
you invent a person, place, or object that is not in the provided entities,
wrap its name in double square brackets like [[The Broker]] so it can be
reviewed afterwards.`

func buildQuery(req Request) string {
	parts := []string{req.Title}
	if req.SessionType != "" {
		parts = append(parts, req.SessionType)
	}
	parts = append(parts, req.FocusAreas...)
	return strings.Join(parts, " ")
}

func buildPrompt(campaign *store.Campaign, req Request, digests []store.SessionDigest, matches []similarity.Match, entities []store.Entity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Campaign: %s (%s)\n", campaign.Name, campaign.System)
	if campaign.Description != "" {
		fmt.Fprintf(&b, "%s\n", campaign.Description)
	}

	fmt.Fprintf(&b, "\nSession: %s\n", req.Title)
	if req.SessionType != "" {
		fmt.Fprintf(&b, "Type: %s\n", req.SessionType)
	}
	if req.DurationHours > 0 {
		fmt.Fprintf(&b, "Estimated duration: %.1f hours\n", req.DurationHours)
	}
	if len(req.FocusAreas) > 0 {
		fmt.Fprintf(&b, "Focus: %s\n", strings.Join(req.FocusAreas, ", "))
	}
	if req.OneOff {
		b.WriteString("This is a one-off session and should resolve within itself.\n")
	}

	if len(digests) > 0 {
		b.WriteString("\nRecent sessions:\n")
		for _, d := range digests {
			fmt.Fprintf(&b, "- Session %d, %s: %s\n", d.SessionNumber, d.Title, d.Summary)
		}
	}

	if len(matches) > 0 {
		b.WriteString("\nEstablished canon:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
	}

	var pcs, others []store.Entity
	for _, e := range entities {
		if e.Type == "player_character" {
			pcs = append(pcs, e)
		} else {
			others = append(others, e)
		}
	}

	if len(others) > 0 {
		b.WriteString("\nEntities in play:\n")
		for _, e := range others {
			fmt.Fprintf(&b, "- %s (%s", e.Name, e.Type)
			if e.Status != "" {
				fmt.Fprintf(&b, ", %s", e.Status)
			}
			b.WriteString(")")
			if e.Description != "" {
				fmt.Fprintf(&b, ": %s", e.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(pcs) > 0 {
		b.WriteString("\nPlayer characters:\n")
		for _, e := range pcs {
			fmt.Fprintf(&b, "- %s", e.Name)
			if e.Status != "" {
				fmt.Fprintf(&b, " (%s)", e.Status)
			}
			if e.Description != "" {
				fmt.Fprintf(&b, ": %s", e.Description)
			}
			if backstory := metadataString(e.Metadata, "backstory"); backstory != "" {
				fmt.Fprintf(&b, " Backstory: %s", backstory)
			}
			if goals := metadataString(e.Metadata, "goals"); goals != "" {
				fmt.Fprintf(&b, " Goals: %s", goals)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nWrite the session script now.")
	return b.String()
}

func metadataString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}
