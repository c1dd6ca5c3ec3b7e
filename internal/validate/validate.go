// Package validate audits a campaign's stored knowledge for internal drift:
// changelog references to entities the graph never learned about,
// placeholders that were never given a real definition, and entities that
// nothing connects to.
package validate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lorekeeper/internal/parser"
	"lorekeeper/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeUnknownEntityType    = "unknown_entity_type"
	codePlaceholderEntity    = "placeholder_entity"
	codeDuplicateName        = "duplicate_name"
	codeDanglingEndpoint     = "dangling_relationship_endpoint"
	codeDanglingReference    = "dangling_changelog_reference"
	codeOrphanedEntity       = "orphaned_entity"
	codeMissingLinkedContent = "missing_linked_content"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	EntityID string   `json:"entity_id,omitempty"`
	Name     string   `json:"name,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Counts() (errs, warnings int) {
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityError:
			errs++
		case SeverityWarn:
			warnings++
		}
	}
	return errs, warnings
}

// Run walks the campaign's entities, relationships, changelog, and completed
// tasks and reports every inconsistency it finds. A clean campaign yields a
// report with no issues.
func Run(ctx context.Context, db Store, campaignID string) (*Report, error) {
	entities, err := db.ListEntities(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	issues := make([]Issue, 0)
	known := make(map[string]store.Entity, len(entities))
	byName := make(map[string][]string)
	for _, e := range entities {
		known[e.ID] = e
		key := parser.Normalize(e.Name)
		byName[key] = append(byName[key], e.ID)

		if !store.ValidEntityType(e.Type) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeUnknownEntityType,
				Message:  fmt.Sprintf("entity type %q is not recognized", e.Type),
				EntityID: e.ID,
				Name:     e.Name,
			})
		}
		if e.Placeholder {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codePlaceholderEntity,
				Message:  "placeholder entity was never given a real definition",
				EntityID: e.ID,
				Name:     e.Name,
			})
		}
	}

	var dupNames []string
	for name, ids := range byName {
		if name != "" && len(ids) > 1 {
			dupNames = append(dupNames, name)
		}
	}
	sort.Strings(dupNames)
	for _, name := range dupNames {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeDuplicateName,
			Message:  fmt.Sprintf("%d entities share the name %q", len(byName[name]), name),
			Name:     name,
		})
	}

	relationships, err := db.ListRelationships(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	connected := make(map[string]struct{}, len(relationships)*2)
	for _, r := range relationships {
		connected[r.FromID] = struct{}{}
		connected[r.ToID] = struct{}{}
		for _, id := range []string{r.FromID, r.ToID} {
			if _, ok := known[id]; !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeDanglingEndpoint,
					Message:  fmt.Sprintf("relationship %s -> %s references unknown entity %q", r.FromID, r.ToID, id),
					EntityID: id,
				})
			}
		}
	}

	for _, e := range entities {
		if e.Placeholder {
			continue
		}
		if _, ok := connected[e.ID]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeOrphanedEntity,
				Message:  "entity has no relationships",
				EntityID: e.ID,
				Name:     e.Name,
			})
		}
	}

	entries, err := db.ListWorldState(ctx, campaignID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing world state: %w", err)
	}
	flagged := make(map[string]struct{})
	for _, entry := range entries {
		for _, id := range changelogRefs(entry) {
			if _, ok := known[id]; ok {
				continue
			}
			if _, dup := flagged[id]; dup {
				continue
			}
			flagged[id] = struct{}{}
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDanglingReference,
				Message:  fmt.Sprintf("world state entry %s references entity %q that is not in the graph", entry.ID, id),
				EntityID: id,
			})
		}
	}

	tasks, err := db.ListTasks(ctx, campaignID, store.TaskCompleted)
	if err != nil {
		return nil, fmt.Errorf("listing completed tasks: %w", err)
	}
	for _, task := range tasks {
		if task.LinkedContentID == "" {
			continue
		}
		shard, err := db.GetShard(ctx, campaignID, task.LinkedContentID)
		if err != nil {
			return nil, fmt.Errorf("loading linked content for task %s: %w", task.ID, err)
		}
		if shard == nil {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeMissingLinkedContent,
				Message:  fmt.Sprintf("task fulfilled by content %s which no longer exists", task.LinkedContentID),
				Name:     task.Title,
			})
		}
	}

	return &Report{Issues: issues}, nil
}

func changelogRefs(entry store.WorldStateEntry) []string {
	var ids []string
	for _, u := range entry.EntityUpdates {
		ids = append(ids, u.EntityID)
	}
	for _, r := range entry.RelationshipUpdates {
		ids = append(ids, r.From, r.To)
	}
	for _, n := range entry.NewEntities {
		ids = append(ids, n.EntityID)
	}
	return ids
}
