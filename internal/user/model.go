package user

import (
	"time"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/sanitizer"
)

// DisplayNameMaxLength bounds stored display names.
const DisplayNameMaxLength = 50

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,teknigo_email"`
	Password    string `json:"password" binding:"required,strong_password"`
	DisplayName string `json:"displayName" binding:"required,min=3,max=50"`
	UserType    string `json:"userType" binding:"required,oneof=client technician"`
}

// UpdateProfileRequest carries a partial profile update; nil fields are left unchanged.
// Specialties and ServiceAreas are accepted from technicians only.
type UpdateProfileRequest struct {
	DisplayName  *string  `json:"displayName" binding:"omitempty,person_name"`
	PhoneNumber  *string  `json:"phoneNumber" binding:"omitempty,phone"`
	PhotoURL     *string  `json:"photoURL" binding:"omitempty,url,max=2048"`
	Specialties  []string `json:"specialties" binding:"omitempty,max=20,dive,min=2,max=50"`
	ServiceAreas []string `json:"serviceAreas" binding:"omitempty,max=20,dive,min=2,max=50"`
}

// SetDisabledRequest is the body of the admin enable/disable endpoint.
type SetDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// ListFilter narrows profile listings.
type ListFilter struct {
	UserType        common.Role
	ExcludeDisabled bool
}

// NewProfile builds the stored profile document of a new account.
func NewProfile(uid, email, displayName, photoURL string, role common.Role, emailVerified bool, now time.Time) sanitizer.Record {
	return sanitizer.Record{
		string(sanitizer.UserUID):             uid,
		string(sanitizer.UserEmail):           email,
		string(sanitizer.UserDisplayName):     displayName,
		string(sanitizer.UserPhotoURL):        photoURL,
		string(sanitizer.UserType):            role.String(),
		string(sanitizer.UserRating):          0.0,
		string(sanitizer.UserReviewCount):     int64(0),
		string(sanitizer.UserCreatedAt):       now,
		string(sanitizer.UserLastLoginAt):     now,
		string(sanitizer.UserDisabled):        false,
		string(sanitizer.UserEmailVerified):   emailVerified,
		string(sanitizer.UserIsActive):        true,
		string(sanitizer.UserProfileComplete): false,
		sanitizer.SchemaVersionKey:            sanitizer.SchemaVersion,
	}
}

// IsComplete reports whether a profile has what clients need to contact the person.
// Technicians additionally need at least one specialty and service area.
func IsComplete(rec sanitizer.Record) bool {
	if rec.String(string(sanitizer.UserDisplayName)) == "" || rec.String(string(sanitizer.UserPhoneNumber)) == "" {
		return false
	}
	if common.ParseRole(rec.String(string(sanitizer.UserType))) == common.RoleTechnician {
		return len(rec.Strings(string(sanitizer.UserSpecialties))) > 0 &&
			len(rec.Strings(string(sanitizer.UserServiceAreas))) > 0
	}
	return true
}
