// Package recap assembles a narrative campaign summary and appends the
// single next-step directive for the calling agent. Building a recap
// never writes; the third directive instructs the agent to create tasks
// through the normal operation instead.
package recap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lorekeeper/internal/store"
	"lorekeeper/internal/worldstate"
)

// The three directives, chosen deterministically from the open and
// completed task counts. Exactly one is appended per recap.
const (
	DirectiveOpenTasks = "Present the open planning tasks to the user. " +
		"Do not generate new tasks while any remain open."
	DirectiveOfferReadout = "Ask the user whether to assemble a consolidated session readout " +
		"from the completed tasks. Do not propose new tasks until they answer."
	DirectiveGenerateTasks = "Generate 2-3 new campaign-relevant planning tasks and persist them " +
		"with create_tasks before reporting completion."
)

type DigestReader interface {
	ListSessionDigests(ctx context.Context, campaignID string, limit int) ([]store.SessionDigest, error)
}

type StateReader interface {
	ChangesSince(ctx context.Context, campaignID string, since time.Time) (*worldstate.Delta, error)
}

type TaskReader interface {
	List(ctx context.Context, campaignID string, statuses ...string) ([]store.PlanningTask, error)
	Counts(ctx context.Context, campaignID string) (open, completed int, err error)
}

type Recap struct {
	Narrative      string               `json:"narrative"`
	Directive      string               `json:"directive"`
	Digests        []store.SessionDigest `json:"digests,omitempty"`
	Delta          *worldstate.Delta    `json:"delta,omitempty"`
	OpenTasks      []store.PlanningTask `json:"open_tasks,omitempty"`
	OpenCount      int                  `json:"open_count"`
	CompletedCount int                  `json:"completed_count"`
}

type Service struct {
	digests     DigestReader
	state       StateReader
	tasks       TaskReader
	digestCount int
	logger      *zap.Logger
}

func NewService(digests DigestReader, state StateReader, tasks TaskReader, digestCount int, logger *zap.Logger) *Service {
	if digestCount < 1 {
		digestCount = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{digests: digests, state: state, tasks: tasks, digestCount: digestCount, logger: logger}
}

// Build gathers recent digests, the world-state delta since the given
// time (default one hour before the call), and task counts. Each part
// degrades independently to an omitted section on read failure; the
// directive is always present.
func (s *Service) Build(ctx context.Context, campaignID string, since time.Time) (*Recap, error) {
	if since.IsZero() {
		since = time.Now().UTC().Add(-time.Hour)
	}

	recap := &Recap{}

	digests, err := s.digests.ListSessionDigests(ctx, campaignID, s.digestCount)
	if err != nil {
		s.logger.Warn("loading session digests for recap", zap.Error(err))
	} else {
		recap.Digests = digests
	}

	delta, err := s.state.ChangesSince(ctx, campaignID, since)
	if err != nil {
		s.logger.Warn("loading world state delta for recap", zap.Error(err))
	} else if delta != nil && (len(delta.Entities) > 0 || delta.RelationshipChanges > 0) {
		recap.Delta = delta
	}

	countsKnown := true
	open, completed, err := s.tasks.Counts(ctx, campaignID)
	if err != nil {
		s.logger.Warn("counting tasks for recap", zap.Error(err))
		countsKnown = false
	} else {
		recap.OpenCount = open
		recap.CompletedCount = completed
	}

	if countsKnown && open > 0 {
		openTasks, err := s.tasks.List(ctx, campaignID, store.TaskPending, store.TaskInProgress)
		if err != nil {
			s.logger.Warn("listing open tasks for recap", zap.Error(err))
		} else {
			recap.OpenTasks = openTasks
		}
	}

	if countsKnown {
		recap.Directive = directive(open, completed)
	} else {
		// Without counts the only safe instruction is the read-only one.
		recap.Directive = DirectiveOpenTasks
	}

	recap.Narrative = s.render(recap, since, countsKnown)
	return recap, nil
}

func directive(open, completed int) string {
	switch {
	case open > 0:
		return DirectiveOpenTasks
	case completed > 0:
		return DirectiveOfferReadout
	default:
		return DirectiveGenerateTasks
	}
}

func (s *Service) render(recap *Recap, since time.Time, countsKnown bool) string {
	var b strings.Builder

	if len(recap.Digests) > 0 {
		b.WriteString("Recent sessions:\n")
		for _, d := range recap.Digests {
			fmt.Fprintf(&b, "- Session %d: %s", d.SessionNumber, d.Title)
			if d.Summary != "" {
				fmt.Fprintf(&b, " - %s", summaryLine(d.Summary))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if recap.Delta != nil {
		fmt.Fprintf(&b, "World changes since %s:\n", since.Format("2006-01-02 15:04"))
		for _, e := range recap.Delta.Entities {
			name := e.Name
			if name == "" {
				name = e.EntityID
			}
			fmt.Fprintf(&b, "- %s", name)
			if e.Status != "" {
				fmt.Fprintf(&b, ": now %s", e.Status)
			}
			if e.Description != "" {
				fmt.Fprintf(&b, " (%s)", summaryLine(e.Description))
			}
			b.WriteString("\n")
		}
		if recap.Delta.RelationshipChanges > 0 {
			fmt.Fprintf(&b, "- %d relationship change(s)\n", recap.Delta.RelationshipChanges)
		}
		b.WriteString("\n")
	}

	if countsKnown {
		fmt.Fprintf(&b, "Planning: %d open task(s), %d completed.\n", recap.OpenCount, recap.CompletedCount)
		for _, task := range recap.OpenTasks {
			fmt.Fprintf(&b, "- [%s] %s\n", task.Status, task.Title)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Next step: %s", recap.Directive)
	return b.String()
}

// summaryLine truncates multi-line or very long text to one readable line.
func summaryLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	const max = 160
	if len(text) > max {
		return strings.TrimSpace(text[:max]) + "..."
	}
	return text
}
