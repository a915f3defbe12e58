// Package sanitizer produces role-appropriate field subsets of user, service-request and
// review records before they leave the server.
//
// All operations are pure: the input record is never modified and a nil record yields nil.
// Roles outside client, technician and admin get the least-privileged view.
package sanitizer

import (
	"fmt"

	"teknigo_backend/internal/common"
)

// Sanitizer applies a Policy to records. It is safe for concurrent use.
type Sanitizer struct {
	policy *Policy
}

// New returns a Sanitizer for policy after validating that its tiers do not overlap.
func New(policy *Policy) (*Sanitizer, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sanitizer policy: %w", err)
	}
	return &Sanitizer{policy: policy}, nil
}

// NewDefault returns a Sanitizer using DefaultPolicy.
func NewDefault() (*Sanitizer, error) {
	return New(DefaultPolicy())
}

// Policy exposes the partitions in use.
func (s *Sanitizer) Policy() *Policy {
	return s.policy
}

// User returns the fields of a user record that role may see. isSelf marks the requester as
// the record's subject.
//
// Any authenticated client or technician sees the restricted tier, not only the subject.
func (s *Sanitizer) User(record Record, role common.Role, isSelf bool) Record {
	if record == nil {
		return nil
	}
	p := s.policy.User
	out := make(Record, p.Public.Len())
	copyPresent(out, record, p.Public)

	switch {
	case role == common.RoleAdmin:
		copyPresent(out, record, p.Restricted)
		copyPresent(out, record, p.AdminOnly)
	case isSelf || role == common.RoleTechnician || role == common.RoleClient:
		copyPresent(out, record, p.Restricted)
	}
	return out
}

// Service returns a full shallow copy for owners and admins and the public tier otherwise.
func (s *Sanitizer) Service(record Record, role common.Role, isOwner bool) Record {
	if record == nil {
		return nil
	}
	if isOwner || role == common.RoleAdmin {
		return record.Clone()
	}
	out := make(Record, s.policy.Service.Public.Len())
	copyPresent(out, record, s.policy.Service.Public)
	return out
}

// Review always carries the fixed review fields, set to nil when missing from the input.
// Linkage fields are added only for admins and owners.
func (s *Sanitizer) Review(record Record, role common.Role, isOwner bool) Record {
	if record == nil {
		return nil
	}
	p := s.policy.Review
	out := make(Record, p.Always.Len()+p.Linkage.Len())
	copyAlways(out, record, p.Always)
	if role == common.RoleAdmin || isOwner {
		copyAlways(out, record, p.Linkage)
	}
	return out
}

// Users sanitizes each record, with isSelf decided per record.
func (s *Sanitizer) Users(records []Record, role common.Role, isSelf func(Record) bool) []Record {
	return each(records, func(r Record) Record { return s.User(r, role, call(isSelf, r)) })
}

// Services sanitizes each record, with isOwner decided per record.
func (s *Sanitizer) Services(records []Record, role common.Role, isOwner func(Record) bool) []Record {
	return each(records, func(r Record) Record { return s.Service(r, role, call(isOwner, r)) })
}

// Reviews sanitizes each record, with isOwner decided per record.
func (s *Sanitizer) Reviews(records []Record, role common.Role, isOwner func(Record) bool) []Record {
	return each(records, func(r Record) Record { return s.Review(r, role, call(isOwner, r)) })
}

func copyPresent[F ~string](dst, src Record, set FieldSet[F]) {
	for _, f := range set.fields {
		if v, ok := src[string(f)]; ok {
			dst[string(f)] = v
		}
	}
}

func copyAlways[F ~string](dst, src Record, set FieldSet[F]) {
	for _, f := range set.fields {
		dst[string(f)] = src[string(f)]
	}
}

func each(records []Record, fn func(Record) Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, fn(r))
	}
	return out
}

func call(pred func(Record) bool, r Record) bool {
	return pred != nil && r != nil && pred(r)
}
