package sanitizer

import (
	"errors"
	"fmt"
	"sort"
)

// FieldSet is an immutable, ordered set of field keys of one record kind.
type FieldSet[F ~string] struct {
	fields []F
	index  map[F]struct{}
}

// NewFieldSet builds a set from keys, dropping duplicates while keeping first-seen order.
func NewFieldSet[F ~string](fields ...F) FieldSet[F] {
	s := FieldSet[F]{
		fields: make([]F, 0, len(fields)),
		index:  make(map[F]struct{}, len(fields)),
	}
	for _, f := range fields {
		if _, dup := s.index[f]; dup {
			continue
		}
		s.index[f] = struct{}{}
		s.fields = append(s.fields, f)
	}
	return s
}

// Contains reports whether f is a member of the set.
func (s FieldSet[F]) Contains(f F) bool {
	_, ok := s.index[f]
	return ok
}

// Len returns the number of keys in the set.
func (s FieldSet[F]) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the keys in declaration order.
func (s FieldSet[F]) Fields() []F {
	out := make([]F, len(s.fields))
	copy(out, s.fields)
	return out
}

// UserPolicy partitions user record fields into visibility tiers.
type UserPolicy struct {
	Public     FieldSet[UserField]
	Restricted FieldSet[UserField]
	AdminOnly  FieldSet[UserField]
}

// ServicePolicy partitions service-request record fields into visibility tiers.
type ServicePolicy struct {
	Public    FieldSet[ServiceField]
	Owner     FieldSet[ServiceField]
	AdminOnly FieldSet[ServiceField]
}

// ReviewPolicy lists the review fields shown to everyone and the linkage fields shown to
// admins and owners.
type ReviewPolicy struct {
	Always  FieldSet[ReviewField]
	Linkage FieldSet[ReviewField]
}

// Policy groups the partitions for every record kind.
type Policy struct {
	User    UserPolicy
	Service ServicePolicy
	Review  ReviewPolicy
}

// DefaultPolicy returns the field partitions used by the application.
func DefaultPolicy() *Policy {
	return &Policy{
		User: UserPolicy{
			Public: NewFieldSet(
				UserDisplayName, UserPhotoURL, UserType, UserRating,
				UserReviewCount, UserSpecialties, UserServiceAreas,
			),
			Restricted: NewFieldSet(UserEmail, UserPhoneNumber, UserCreatedAt, UserLastLoginAt),
			AdminOnly: NewFieldSet(
				UserUID, UserDisabled, UserEmailVerified, UserPaymentCustomerID, UserNotifications,
			),
		},
		Service: ServicePolicy{
			Public: NewFieldSet(
				ServiceType, ServiceStatus, ServiceCreatedAt, ServiceUpdatedAt,
				ServiceHasReview, ServiceClientName, ServiceTechnicianName,
			),
			Owner: NewFieldSet(
				ServiceDescription, ServiceLocation, ServiceArea, ServiceUrgent,
				ServicePreferredDate, ServicePreferredTime, ServiceBudget, ServiceAdditionalNotes,
			),
			AdminOnly: NewFieldSet(
				ServiceClientID, ServiceClientEmail, ServiceTechnicianID,
				ServiceTechnicianEmail, ServiceReviewID, ServicePaymentStatus,
			),
		},
		Review: ReviewPolicy{
			Always:  NewFieldSet(ReviewID, ReviewRating, ReviewComment, ReviewCreatedAt),
			Linkage: NewFieldSet(ReviewClientID, ReviewServiceID, ReviewTechnicianID),
		},
	}
}

// Validate checks that no key belongs to two tiers of the same record kind.
func (p *Policy) Validate() error {
	if p == nil {
		return errors.New("sanitizer policy is nil")
	}
	var errs []error
	errs = append(errs, disjoint("user", map[string]FieldSet[UserField]{
		"public": p.User.Public, "restricted": p.User.Restricted, "admin-only": p.User.AdminOnly,
	})...)
	errs = append(errs, disjoint("service", map[string]FieldSet[ServiceField]{
		"public": p.Service.Public, "owner": p.Service.Owner, "admin-only": p.Service.AdminOnly,
	})...)
	errs = append(errs, disjoint("review", map[string]FieldSet[ReviewField]{
		"always": p.Review.Always, "linkage": p.Review.Linkage,
	})...)
	return errors.Join(errs...)
}

func disjoint[F ~string](kind string, tiers map[string]FieldSet[F]) []error {
	var errs []error
	owner := make(map[F]string)
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, f := range tiers[name].fields {
			if prev, seen := owner[f]; seen {
				errs = append(errs, fmt.Errorf("%s field %q is in both %s and %s tiers", kind, f, prev, name))
				continue
			}
			owner[f] = name
		}
	}
	return errs
}
