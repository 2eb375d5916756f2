package enums

// ContactStatus tracks admin handling of a contact message.
type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusReplied  ContactStatus = "replied"
	ContactStatusArchived ContactStatus = "archived"
)

var contactStatuses = newSet("contact status",
	ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived)

func ParseContactStatus(value string) (ContactStatus, error) {
	return contactStatuses.parse(value)
}
