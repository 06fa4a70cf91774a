package console

import (
	"strconv"
	"strings"

	"fdiadmin/internal/models"
)

// Filter keeps users whose first or last name contains term (ignoring case)
// or whose decimal Telegram ID contains it. An empty term returns users as is.
func Filter(users []models.User, term string) []models.User {
	if term == "" {
		return users
	}

	needle := strings.ToLower(term)
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if containsFold(u.FirstName, needle) ||
			containsFold(u.LastName, needle) ||
			strings.Contains(strconv.FormatInt(u.TelegramID, 10), term) {
			out = append(out, u)
		}
	}
	return out
}

func containsFold(field *string, lowerNeedle string) bool {
	if field == nil || *field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(*field), lowerNeedle)
}
