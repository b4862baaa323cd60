package request

import "github.com/cartdesk/cartdesk/internal/models"

// ValidTransitions maps each status to its valid next statuses. Archived is
// terminal. The map is the single source of truth for the lifecycle graph.
var ValidTransitions = map[string][]string{
	models.StatusNew:        {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusDone, models.StatusCancelled},
	models.StatusDone:       {models.StatusArchived},
	models.StatusCancelled:  {models.StatusArchived},
	models.StatusArchived:   {},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to string) bool {
	for _, v := range ValidTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}
