package console

import "fdiadmin/internal/models"

// PendingIDs collects the ids of a pending-status listing.
func PendingIDs(pending []models.User) map[int]struct{} {
	ids := make(map[int]struct{}, len(pending))
	for _, u := range pending {
		ids[u.ID] = struct{}{}
	}
	return ids
}

// ComputeStatus returns a copy of users where a user is pending iff its id
// is in pendingIDs, and active otherwise.
func ComputeStatus(users []models.User, pendingIDs map[int]struct{}) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		if _, ok := pendingIDs[u.ID]; ok {
			u.Status = models.StatusPending
		} else {
			u.Status = models.StatusActive
		}
		out[i] = u
	}
	return out
}
