package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/platform/metrics"
	"teknigo_backend/internal/sanitizer"
	"teknigo_backend/internal/settings"
	"teknigo_backend/internal/validation"
)

// AuthProvider is the subset of Firebase Authentication used for account management.
type AuthProvider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	SetDisabled(ctx context.Context, uid string, disabled bool) error
	SetRoleClaim(ctx context.Context, uid string, role common.Role) error
	DeleteUser(ctx context.Context, uid string) error
}

// SettingsReader exposes the registration switch.
type SettingsReader interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// DirectoryIndexer keeps the technician search index in step with profiles.
type DirectoryIndexer interface {
	IndexTechnician(ctx context.Context, uid string, profile sanitizer.Record) error
	RemoveTechnician(ctx context.Context, uid string) error
}

// Service implements profile management.
type Service struct {
	repo      Repository
	auth      AuthProvider
	settings  SettingsReader
	directory DirectoryIndexer
	sanitizer *sanitizer.Sanitizer
	rules     *validation.Rules
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new user service.
func NewService(
	repo Repository,
	authProvider AuthProvider,
	settingsReader SettingsReader,
	directory DirectoryIndexer,
	s *sanitizer.Sanitizer,
	rules *validation.Rules,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		auth:      authProvider,
		settings:  settingsReader,
		directory: directory,
		sanitizer: s,
		rules:     rules,
		metrics:   m,
		logger:    logger.Named("user_service"),
		now:       time.Now,
	}
}

// Register creates the Firebase account and the profile document, and returns the new user's
// own view of the profile.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*common.Resource, error) {
	cur, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if !cur.AllowRegistrations {
		return nil, common.ErrForbidden.WithDetails("New registrations are currently closed.")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	details := map[string]string{}
	if err := s.rules.ValidateEmail(email); err != nil {
		details["Email"] = err.Error()
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		details["Password"] = err.Error()
	}
	role := common.ParseRole(req.UserType)
	if !role.IsPublic() {
		details["UserType"] = "The usertype field must be one of the following values: client technician."
	}
	if len(details) > 0 {
		return nil, common.NewValidationAPIError(details)
	}

	displayName := sanitizer.Text(req.DisplayName, DisplayNameMaxLength)
	uid, err := s.auth.CreateUser(ctx, email, req.Password, displayName)
	if err != nil {
		if errors.Is(err, firebase.ErrEmailExists) {
			return nil, common.ErrConflict.WithDetails("An account with this email already exists.")
		}
		return nil, fmt.Errorf("create auth user: %w", err)
	}
	if err := s.auth.SetRoleClaim(ctx, uid, role); err != nil {
		s.logger.Warn("Failed to set role claim; role will be read from profile", zap.Error(err), zap.String("uid", uid))
	}

	profile := NewProfile(uid, email, displayName, "", role, false, s.now())
	if err := s.repo.Create(ctx, uid, profile); err != nil {
		s.logger.Error("Failed to create profile after auth user", zap.Error(err), zap.String("uid", uid))
		if delErr := s.auth.DeleteUser(ctx, uid); delErr != nil {
			s.logger.Error("Failed to remove orphaned auth user", zap.Error(delErr), zap.String("uid", uid))
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.syncDirectory(ctx, uid, profile)

	s.logger.Info("User registered", zap.String("uid", uid), zap.String("userType", role.String()))
	return s.resource(uid, profile, role, true), nil
}

// SyncFromToken returns the profile of the token's subject, creating a client profile on the
// first OAuth sign-in and refreshing lastLoginAt otherwise.
func (s *Service) SyncFromToken(ctx context.Context, token *auth.Token) (*common.Resource, bool, error) {
	if token == nil || token.UID == "" {
		return nil, false, common.ErrUnauthorized
	}
	now := s.now()

	profile, err := s.repo.Get(ctx, token.UID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		cur, err := s.settings.Get(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("read settings: %w", err)
		}
		if !cur.AllowRegistrations {
			return nil, false, common.ErrForbidden.WithDetails("New registrations are currently closed.")
		}
		email, _ := token.Claims["email"].(string)
		name, _ := token.Claims["name"].(string)
		picture, _ := token.Claims["picture"].(string)
		verified, _ := token.Claims["email_verified"].(bool)
		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		profile = NewProfile(token.UID, strings.ToLower(email), sanitizer.Text(name, DisplayNameMaxLength), picture, common.RoleClient, verified, now)
		if err := s.repo.Create(ctx, token.UID, profile); err != nil {
			return nil, false, fmt.Errorf("create oauth profile: %w", err)
		}
		if err := s.auth.SetRoleClaim(ctx, token.UID, common.RoleClient); err != nil {
			s.logger.Warn("Failed to set role claim for oauth user", zap.Error(err), zap.String("uid", token.UID))
		}
		s.logger.Info("Created profile for OAuth user",
			zap.String("uid", token.UID),
			zap.String("provider", token.Firebase.SignInProvider),
		)
		return s.resource(token.UID, profile, common.RoleClient, true), true, nil
	case err != nil:
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	if profile.Bool(string(sanitizer.UserDisabled)) {
		return nil, false, common.ErrForbidden.WithDetails("This account has been disabled.")
	}
	if err := s.TouchLastLogin(ctx, token.UID); err != nil {
		return nil, false, err
	}
	profile[string(sanitizer.UserLastLoginAt)] = now
	role := common.ParseRole(profile.String(string(sanitizer.UserType)))
	return s.resource(token.UID, profile, role, true), false, nil
}

// TouchLastLogin records a successful sign-in.
func (s *Service) TouchLastLogin(ctx context.Context, uid string) error {
	if err := s.repo.Update(ctx, uid, map[string]interface{}{string(sanitizer.UserLastLoginAt): s.now()}); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// ResolveRole returns the role stored on uid's profile. A missing profile yields RoleAnonymous.
func (s *Service) ResolveRole(ctx context.Context, uid string) (common.Role, error) {
	profile, err := s.repo.Get(ctx, uid)
	if errors.Is(err, common.ErrNotFound) {
		return common.RoleAnonymous, nil
	}
	if err != nil {
		return common.RoleAnonymous, err
	}
	if profile.Bool(string(sanitizer.UserDisabled)) {
		return common.RoleAnonymous, common.ErrForbidden.WithDetails("This account has been disabled.")
	}
	return common.ParseRole(profile.String(string(sanitizer.UserType))), nil
}

// Lookup returns the stored profile of uid without sanitization, for server-side use only.
func (s *Service) Lookup(ctx context.Context, uid string) (sanitizer.Record, error) {
	return s.repo.Get(ctx, uid)
}

// GetProfile returns uid's profile as requester may see it. Disabled profiles are hidden from
// everyone but admins and the subject.
func (s *Service) GetProfile(ctx context.Context, requester common.Requester, uid string) (*common.Resource, error) {
	profile, err := s.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	isSelf := requester.IsAuthenticated() && requester.UID == uid
	if profile.Bool(string(sanitizer.UserDisabled)) && !isSelf && !requester.IsAdmin() {
		return nil, common.ErrNotFound.WithDetails("User not found.")
	}
	return s.resource(uid, profile, requester.Role, isSelf), nil
}

// UpdateProfile applies req to the requester's own profile.
func (s *Service) UpdateProfile(ctx context.Context, requester common.Requester, req UpdateProfileRequest) (*common.Resource, error) {
	if !requester.IsAuthenticated() {
		return nil, common.ErrUnauthorized
	}
	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		fields[string(sanitizer.UserDisplayName)] = sanitizer.Text(*req.DisplayName, DisplayNameMaxLength)
	}
	if req.PhoneNumber != nil {
		fields[string(sanitizer.UserPhoneNumber)] = strings.Join(strings.Fields(*req.PhoneNumber), "")
	}
	if req.PhotoURL != nil {
		fields[string(sanitizer.UserPhotoURL)] = strings.TrimSpace(*req.PhotoURL)
	}
	if req.Specialties != nil || req.ServiceAreas != nil {
		if requester.Role != common.RoleTechnician {
			return nil, common.ErrForbidden.WithDetails("Only technicians can set specialties and service areas.")
		}
		if req.Specialties != nil {
			fields[string(sanitizer.UserSpecialties)] = cleanList(req.Specialties)
		}
		if req.ServiceAreas != nil {
			fields[string(sanitizer.UserServiceAreas)] = cleanList(req.ServiceAreas)
		}
	}
	if len(fields) == 0 {
		return nil, common.ErrBadRequest.WithDetails("No profile fields to update.")
	}
	fields[string(sanitizer.UserUpdatedAt)] = s.now()

	if err := s.repo.Update(ctx, requester.UID, fields); err != nil {
		return nil, err
	}
	profile, err := s.repo.Get(ctx, requester.UID)
	if err != nil {
		return nil, err
	}
	if complete := IsComplete(profile); complete != profile.Bool(string(sanitizer.UserProfileComplete)) {
		if err := s.repo.Update(ctx, requester.UID, map[string]interface{}{string(sanitizer.UserProfileComplete): complete}); err != nil {
			return nil, err
		}
		profile[string(sanitizer.UserProfileComplete)] = complete
	}
	s.syncDirectory(ctx, requester.UID, profile)
	return s.resource(requester.UID, profile, requester.Role, true), nil
}

// ListTechnicians returns a page of technician profiles. Disabled technicians are listed to admins only.
func (s *Service) ListTechnicians(ctx context.Context, requester common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	filter := ListFilter{UserType: common.RoleTechnician, ExcludeDisabled: !requester.IsAdmin()}
	return s.list(ctx, requester, filter, page, pageSize)
}

// ListUsers returns a page of every profile. Admin only.
func (s *Service) ListUsers(ctx context.Context, requester common.Requester, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	if !requester.IsAdmin() {
		return nil, nil, common.ErrForbidden
	}
	return s.list(ctx, requester, ListFilter{}, page, pageSize)
}

func (s *Service) list(ctx context.Context, requester common.Requester, filter ListFilter, page, pageSize int) ([]common.Resource, *common.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, nil, err
	}
	out := make([]common.Resource, 0, len(records))
	for _, rec := range records {
		uid := rec.String(string(sanitizer.UserUID))
		out = append(out, common.Resource{
			ID:         uid,
			Attributes: s.sanitizer.User(rec, requester.Role, requester.IsAuthenticated() && uid == requester.UID),
		})
	}
	s.metrics.Sanitized("user", requester.Role.String(), len(out))
	return out, common.NewPagination(total, page, pageSize), nil
}

// TechniciansForIndex returns raw technician profiles for the directory reindex job.
func (s *Service) TechniciansForIndex(ctx context.Context, page, pageSize int) ([]sanitizer.Record, error) {
	records, _, err := s.repo.List(ctx, ListFilter{UserType: common.RoleTechnician, ExcludeDisabled: true}, page, pageSize)
	return records, err
}

// SetDisabled enables or disables uid. Admin only; admins cannot disable themselves.
func (s *Service) SetDisabled(ctx context.Context, requester common.Requester, uid string, disabled bool) (*common.Resource, error) {
	if !requester.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if disabled && uid == requester.UID {
		return nil, common.ErrBadRequest.WithDetails("Admins cannot disable their own account.")
	}
	profile, err := s.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.auth.SetDisabled(ctx, uid, disabled); err != nil {
		if errors.Is(err, firebase.ErrUserNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found.")
		}
		return nil, fmt.Errorf("update auth user: %w", err)
	}
	now := s.now()
	fields := map[string]interface{}{
		string(sanitizer.UserDisabled):  disabled,
		string(sanitizer.UserIsActive):  !disabled,
		string(sanitizer.UserUpdatedAt): now,
	}
	if err := s.repo.Update(ctx, uid, fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		profile[k] = v
	}
	s.syncDirectory(ctx, uid, profile)

	s.logger.Info("User disabled flag changed", zap.String("uid", uid), zap.Bool("disabled", disabled), zap.String("by", requester.UID))
	return s.resource(uid, profile, requester.Role, false), nil
}

// UpdateRating stores a technician's recomputed review aggregate.
func (s *Service) UpdateRating(ctx context.Context, technicianID string, rating float64, count int64) error {
	fields := map[string]interface{}{
		string(sanitizer.UserRating):      rating,
		string(sanitizer.UserReviewCount): count,
	}
	if err := s.repo.Update(ctx, technicianID, fields); err != nil {
		return fmt.Errorf("update technician rating: %w", err)
	}
	if profile, err := s.repo.Get(ctx, technicianID); err == nil {
		s.syncDirectory(ctx, technicianID, profile)
	}
	return nil
}

func (s *Service) resource(uid string, profile sanitizer.Record, role common.Role, isSelf bool) *common.Resource {
	s.metrics.Sanitized("user", role.String(), 1)
	return &common.Resource{ID: uid, Attributes: s.sanitizer.User(profile, role, isSelf)}
}

// syncDirectory indexes active technicians and removes everyone else. Failures are logged only;
// the directory is rebuilt by the reindex command.
func (s *Service) syncDirectory(ctx context.Context, uid string, profile sanitizer.Record) {
	var err error
	if common.ParseRole(profile.String(string(sanitizer.UserType))) == common.RoleTechnician &&
		!profile.Bool(string(sanitizer.UserDisabled)) {
		err = s.directory.IndexTechnician(ctx, uid, profile)
	} else {
		err = s.directory.RemoveTechnician(ctx, uid)
	}
	if err != nil {
		s.logger.Warn("Directory sync failed", zap.Error(err), zap.String("uid", uid))
	}
}

func cleanList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		v := sanitizer.Text(item, DisplayNameMaxLength)
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup || v == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
