package progress

import "github.com/quantum-grit/your-sofia/signal-service/internal/models"

// Snapshot maps a container id to its currently reported states. A container
// missing from the snapshot has no states reported.
type Snapshot map[string]models.StateSet

// Aggregate derives assignment progress from the assignment's activities and the
// snapshot. It reads its inputs only and keeps no memory between calls.
func Aggregate(a models.Assignment, snapshot Snapshot) models.AssignmentProgress {
	result := models.AssignmentProgress{
		AssignmentID:      a.ID,
		TotalContainers:   len(a.Containers),
		ContainerStatuses: make([]models.ContainerProgress, 0, len(a.Containers)),
	}

	for _, containerID := range a.Containers {
		cp := ContainerProgress(containerID, a.Activities, snapshot[containerID])
		if cp.IsComplete {
			result.CompletedContainers++
		}
		result.ContainerStatuses = append(result.ContainerStatuses, cp)
	}

	result.PercentageComplete = Percentage(result.CompletedContainers, result.TotalContainers)
	return result
}

// ContainerProgress applies the assignment activities to one container: an activity
// is done once it is no longer among the container's current states.
func ContainerProgress(containerID string, activities, current models.StateSet) models.ContainerProgress {
	pending := activities.Intersect(current)
	return models.ContainerProgress{
		ContainerID:         containerID,
		IsComplete:          pending.IsEmpty(),
		CompletedActivities: activities.Difference(current),
		PendingActivities:   pending,
	}
}

// Percentage is completed/total*100 rounded to the nearest integer, halves up.
// Integer arithmetic keeps the result exact. total must be positive.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}
