package enums

// UserStatus maps to the user_status enum in Postgres.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

var userStatuses = newSet("user status", UserStatusActive, UserStatusSuspended, UserStatusDeleted)

func (s UserStatus) IsValid() bool { return userStatuses.has(s) }

func ParseUserStatus(value string) (UserStatus, error) {
	return userStatuses.parse(value)
}
