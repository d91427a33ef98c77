package audit

import "github.com/foxseedlab/auditbot/internal/repository"

// ResolveUnanswered returns roster users that are neither deleted nor ignored
// and have no id in answered. Roster order is preserved.
func ResolveUnanswered(roster []repository.User, answered map[string]struct{}) []repository.User {
	out := make([]repository.User, 0, len(roster))
	for _, u := range roster {
		if !u.Eligible() {
			continue
		}
		if _, ok := answered[u.ID]; ok {
			continue
		}
		out = append(out, u)
	}
	return out
}
