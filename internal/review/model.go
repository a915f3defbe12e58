package review

// CommentMaxLength bounds stored review comments.
const CommentMaxLength = 1000

// CreateRequest is the body of POST /reviews.
type CreateRequest struct {
	ServiceID string `json:"serviceId" binding:"required,max=128"`
	Rating    int    `json:"rating" binding:"required,gte=1,lte=5"`
	Comment   string `json:"comment" binding:"required,min=5,max=1000"`
}

// Stats is a technician's review aggregate.
type Stats struct {
	Average float64
	Count   int64
}
