package settings

import "time"

// Settings is the application-wide configuration document stored at config/app.
type Settings struct {
	MaintenanceMode          bool      `firestore:"maintenanceMode" json:"maintenanceMode"`
	AllowRegistrations       bool      `firestore:"allowRegistrations" json:"allowRegistrations"`
	RequireEmailVerification bool      `firestore:"requireEmailVerification" json:"requireEmailVerification"`
	CreatedAt                time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UpdatedBy                string    `firestore:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// Defaults returns the settings used before the document is initialized.
func Defaults(now time.Time) *Settings {
	return &Settings{
		MaintenanceMode:          false,
		AllowRegistrations:       true,
		RequireEmailVerification: false,
		CreatedAt:                now,
	}
}

// PublicSettings is the subset anonymous clients may read.
type PublicSettings struct {
	MaintenanceMode    bool `json:"maintenanceMode"`
	AllowRegistrations bool `json:"allowRegistrations"`
}

// Public returns the anonymous view of s.
func (s *Settings) Public() PublicSettings {
	return PublicSettings{MaintenanceMode: s.MaintenanceMode, AllowRegistrations: s.AllowRegistrations}
}

// UpdateSettingsRequest carries a partial update; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	MaintenanceMode          *bool `json:"maintenanceMode"`
	AllowRegistrations       *bool `json:"allowRegistrations"`
	RequireEmailVerification *bool `json:"requireEmailVerification"`
}

// fields returns the Firestore merge map for the non-nil fields of r.
func (r UpdateSettingsRequest) fields() map[string]interface{} {
	out := map[string]interface{}{}
	if r.MaintenanceMode != nil {
		out["maintenanceMode"] = *r.MaintenanceMode
	}
	if r.AllowRegistrations != nil {
		out["allowRegistrations"] = *r.AllowRegistrations
	}
	if r.RequireEmailVerification != nil {
		out["requireEmailVerification"] = *r.RequireEmailVerification
	}
	return out
}
