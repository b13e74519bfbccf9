package types

// Status is a type for the record status of a resource in the database.
// This is distinct from a plan's billing status (see PlanStatus) and is
// used to soft-delete and archive rows without losing history.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

func (s Status) String() string {
	return string(s)
}
