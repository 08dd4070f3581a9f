package listeners

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/events"
)

// InvalidateStatistics flushes cached statistics touched by an event.
type InvalidateStatistics struct {
	cache *cache.Tagged
}

func (l *InvalidateStatistics) Handle(_ context.Context, event events.Event) error {
	if l.cache == nil {
		return nil
	}

	switch event.(type) {
	case *events.ProjectStatusChanged:
		l.cache.Flush(cache.TagProjects, cache.TagTasks)
	case *events.TaskStatusChanged, *events.TaskAssigned:
		l.cache.Flush(cache.TagTasks)
	}
	return nil
}
