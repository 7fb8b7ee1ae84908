package domain

// UserRef is a lightweight reference to a user, used for creators and attendees.
// swagger:model UserRef
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DedupeAttendees returns refs with duplicate ids removed, keeping the first occurrence.
// Entries without an id are dropped. The result is never nil.
func DedupeAttendees(refs []UserRef) []UserRef {
	out := make([]UserRef, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if r.ID == "" {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
