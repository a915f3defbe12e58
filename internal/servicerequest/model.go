package servicerequest

import (
	"teknigo_backend/internal/sanitizer"
)

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// PaymentPending is the payment status of a new request.
const PaymentPending = "pending"

const (
	descriptionMaxLength = 2000
	notesMaxLength       = 1000
	shortTextMaxLength   = 200
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a request may move from one status to another.
// Completed and cancelled requests are terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CreateRequest is the body of POST /services.
type CreateRequest struct {
	ServiceType     string   `json:"serviceType" binding:"required,min=2,max=100"`
	Description     string   `json:"description" binding:"required,min=10,max=2000"`
	ServiceArea     string   `json:"serviceArea" binding:"required,min=2,max=100"`
	Location        string   `json:"location" binding:"required,min=3,max=200"`
	Urgent          bool     `json:"urgent"`
	PreferredDate   string   `json:"preferredDate" binding:"omitempty,datetime=2006-01-02"`
	PreferredTime   string   `json:"preferredTime" binding:"omitempty,max=20"`
	Budget          *float64 `json:"budget" binding:"omitempty,gt=0"`
	AdditionalNotes string   `json:"additionalNotes" binding:"omitempty,max=1000"`
	TechnicianID    string   `json:"technicianId" binding:"omitempty,max=128"`
}

// UpdateStatusRequest is the body of PATCH /services/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted in_progress completed cancelled"`
}

// ListFilter narrows request listings. Empty fields do not filter.
type ListFilter struct {
	ClientID     string
	TechnicianID string
	Status       Status
	Unassigned   bool
}

// Document is a stored request with its Firestore ID.
type Document struct {
	ID   string
	Data sanitizer.Record
}

func (d Document) status() Status {
	return Status(d.Data.String(string(sanitizer.ServiceStatus)))
}

func (d Document) clientID() string {
	return d.Data.String(string(sanitizer.ServiceClientID))
}

func (d Document) technicianID() string {
	return d.Data.String(string(sanitizer.ServiceTechnicianID))
}

// IsParticipant reports whether uid is the request's client or assigned technician.
func (d Document) IsParticipant(uid string) bool {
	return uid != "" && (uid == d.clientID() || uid == d.technicianID())
}
