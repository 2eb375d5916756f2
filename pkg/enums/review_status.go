package enums

// ReviewStatus is the moderation state of a product review. Only approved
// reviews count toward a product's rating.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

var reviewStatuses = newSet("review status", ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected)

func ParseReviewStatus(value string) (ReviewStatus, error) {
	return reviewStatuses.parse(value)
}
