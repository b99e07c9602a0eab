package calendar

import (
	"slices"
	"strings"

	"github.com/crewplan/timeline/pkg/resource"
)

// Filter narrows an already range-queried list of events. Empty fields do not
// restrict; categories combine with AND, values inside one set with OR.
type Filter struct {
	Search        string
	ResourceTypes []resource.Type
	ProjectIds    []int
	Statuses      []Status
	Priorities    []Priority
}

func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" &&
		len(f.ResourceTypes) == 0 &&
		len(f.ProjectIds) == 0 &&
		len(f.Statuses) == 0 &&
		len(f.Priorities) == 0
}

// ApplyFilter returns the matching events in their original order. projectNames
// supplies the names searched for events linked to a project.
func ApplyFilter(events []Event, f Filter, projectNames map[int]string) []Event {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	result := make([]Event, 0, len(events))
	for _, e := range events {
		if len(f.ResourceTypes) > 0 && !slices.Contains(f.ResourceTypes, e.ResourceType) {
			continue
		}
		if len(f.ProjectIds) > 0 && (e.ProjectId == nil || !slices.Contains(f.ProjectIds, *e.ProjectId)) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, e.Status) {
			continue
		}
		if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, e.Priority) {
			continue
		}
		if search != "" && !matchesSearch(e, search, projectNames) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func matchesSearch(e Event, search string, projectNames map[int]string) bool {
	fields := []string{e.Title, e.Description, e.Notes}
	if e.ProjectId != nil {
		fields = append(fields, projectNames[*e.ProjectId])
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
