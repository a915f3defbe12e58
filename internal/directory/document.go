package directory

import (
	"github.com/gosimple/slug"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/sanitizer"
)

const (
	specialtySlugsField   = "specialtySlugs"
	serviceAreaSlugsField = "serviceAreaSlugs"
)

// Document builds the index document of a technician: the profile as an anonymous caller sees
// it, plus slugs of specialties and service areas for exact filtering.
func Document(s *sanitizer.Sanitizer, profile sanitizer.Record) sanitizer.Record {
	doc := s.User(profile, common.RoleAnonymous, false)
	if doc == nil {
		return nil
	}
	doc[specialtySlugsField] = slugs(profile.Strings(string(sanitizer.UserSpecialties)))
	doc[serviceAreaSlugsField] = slugs(profile.Strings(string(sanitizer.UserServiceAreas)))
	return doc
}

func slugs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if sl := slug.Make(v); sl != "" {
			out = append(out, sl)
		}
	}
	return out
}
