package sanitizer

// Field keys are typed per record kind so a partition can only hold keys of its own kind.
type (
	UserField    string
	ServiceField string
	ReviewField  string
)

// User record fields.
const (
	UserDisplayName  UserField = "displayName"
	UserPhotoURL     UserField = "photoURL"
	UserType         UserField = "userType"
	UserRating       UserField = "rating"
	UserReviewCount  UserField = "reviewCount"
	UserSpecialties  UserField = "specialties"
	UserServiceAreas UserField = "serviceAreas"

	UserEmail       UserField = "email"
	UserPhoneNumber UserField = "phoneNumber"
	UserCreatedAt   UserField = "createdAt"
	UserLastLoginAt UserField = "lastLoginAt"

	UserUID               UserField = "uid"
	UserDisabled          UserField = "disabled"
	UserEmailVerified     UserField = "emailVerified"
	UserPaymentCustomerID UserField = "paymentCustomerId"
	UserNotifications     UserField = "notifications"

	// Stored but never exposed.
	UserIsActive        UserField = "isActive"
	UserProfileComplete UserField = "profileComplete"
	UserUpdatedAt       UserField = "updatedAt"
)

// Service-request record fields.
const (
	ServiceType           ServiceField = "serviceType"
	ServiceStatus         ServiceField = "status"
	ServiceCreatedAt      ServiceField = "createdAt"
	ServiceUpdatedAt      ServiceField = "updatedAt"
	ServiceHasReview      ServiceField = "hasReview"
	ServiceClientName     ServiceField = "clientName"
	ServiceTechnicianName ServiceField = "technicianName"

	ServiceDescription     ServiceField = "description"
	ServiceLocation        ServiceField = "location"
	ServiceArea            ServiceField = "serviceArea"
	ServiceUrgent          ServiceField = "urgent"
	ServicePreferredDate   ServiceField = "preferredDate"
	ServicePreferredTime   ServiceField = "preferredTime"
	ServiceBudget          ServiceField = "budget"
	ServiceAdditionalNotes ServiceField = "additionalNotes"

	ServiceClientID        ServiceField = "clientId"
	ServiceClientEmail     ServiceField = "clientEmail"
	ServiceTechnicianID    ServiceField = "technicianId"
	ServiceTechnicianEmail ServiceField = "technicianEmail"
	ServiceReviewID        ServiceField = "reviewId"
	ServicePaymentStatus   ServiceField = "paymentStatus"
)

// Review record fields.
const (
	ReviewID        ReviewField = "id"
	ReviewRating    ReviewField = "rating"
	ReviewComment   ReviewField = "comment"
	ReviewCreatedAt ReviewField = "createdAt"

	ReviewClientID     ReviewField = "clientId"
	ReviewServiceID    ReviewField = "serviceId"
	ReviewTechnicianID ReviewField = "technicianId"

	ReviewClientName ReviewField = "clientName"
)

// SchemaVersionKey is written on every document created by this service.
const SchemaVersionKey = "schemaVersion"

// SchemaVersion is the current document schema version.
const SchemaVersion = 1
