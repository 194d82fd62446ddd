package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/lock"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/shopspring/decimal"
)

// Service manages companies and their users: registration, updates and
// (soft) deletion.
type Service struct {
	dir       tenant.Directory
	tx        database.Transactor
	locker    lock.Locker
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	publisher events.Publisher
	policy    *auth.Policy
	logger    *slog.Logger
}

func NewService(dir tenant.Directory, tx database.Transactor, locker lock.Locker, hasher auth.PasswordHasher, tokens TokenIssuer, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dir:       dir,
		tx:        tx,
		locker:    locker,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		policy:    auth.NewPolicy(),
		logger:    logger,
	}
}

// RegisterCompany creates a company, its manager role and its first manager in
// one unit. Company names are unique; the manager email must be unused across
// every company.
func (s *Service) RegisterCompany(ctx context.Context, dto RegisterCompanyDTO) (*CompanyRegistration, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.CompanyName)
	email := tenant.NormalizeEmail(dto.ManagerEmail)
	roleTitle := strings.TrimSpace(dto.ManagerRoleTitle)
	if roleTitle == "" {
		roleTitle = DefaultManagerRoleTitle
	}

	hash, err := s.hasher.Hash(dto.ManagerPassword)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	var (
		company *tenant.Company
		manager *tenant.User
	)
	err = s.locked(ctx, lock.RegistrationKey, func(ctx context.Context) error {
		exists, err := s.dir.CompanyNameExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return companyExists()
		}

		exists, err = s.dir.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return emailExists()
		}

		company = &tenant.Company{Name: name, IsActive: true}
		if err := s.dir.CreateCompany(ctx, company); err != nil {
			if isDuplicate(err) {
				return companyExists()
			}
			return err
		}

		role := &tenant.Role{
			CompanyID:     company.ID,
			Title:         roleTitle,
			ApprovalLimit: tenant.UnlimitedApprovalLimit,
		}
		if err := s.dir.CreateRole(ctx, role); err != nil {
			return err
		}

		manager = &tenant.User{
			CompanyID:    company.ID,
			Name:         strings.TrimSpace(dto.ManagerName),
			Email:        email,
			PasswordHash: hash,
			RoleID:       &role.ID,
			UserType:     tenant.UserTypeManager,
			IsActive:     true,
		}
		if err := s.dir.CreateUser(ctx, manager); err != nil {
			if isDuplicate(err) {
				return emailExists()
			}
			return err
		}

		if err := s.dir.SetCompanyCreator(ctx, company.ID, manager.ID); err != nil {
			return err
		}
		company.CreatedBy = &manager.ID
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, "failed to register company", err)
	}

	tokens, err := s.tokens.IssueTokens(manager)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "company registered",
		"company_id", company.ID,
		"user_id", manager.ID)
	return &CompanyRegistration{Company: company, User: manager, Tokens: &tokens}, nil
}

// RegisterUser adds a user to the requester's company, reusing the role with
// the exact title or creating it.
func (s *Service) RegisterUser(ctx context.Context, req auth.Requester, dto RegisterUserDTO) (*tenant.User, error) {
	if err := s.policy.Authorize(req, auth.OpUserRegister, auth.Resource{CompanyID: req.CompanyID}); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	userType := tenant.UserTypeEmployee
	if dto.UserType != "" {
		userType = tenant.UserType(dto.UserType)
	}
	if err := s.checkGrant(req, userType); err != nil {
		return nil, err
	}

	email := tenant.NormalizeEmail(dto.Email)
	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	var user *tenant.User
	err = s.locked(ctx, lock.CompanyKey(req.CompanyID), func(ctx context.Context) error {
		if _, err := s.activeCompany(ctx, req.CompanyID); err != nil {
			return err
		}

		exists, err := s.dir.EmailExistsInCompany(ctx, req.CompanyID, email)
		if err != nil {
			return err
		}
		if exists {
			return emailExists()
		}

		role, err := s.resolveOrCreateRole(ctx, req.CompanyID, dto)
		if err != nil {
			return err
		}

		user = &tenant.User{
			CompanyID:    req.CompanyID,
			Name:         strings.TrimSpace(dto.Name),
			Email:        email,
			PasswordHash: hash,
			RoleID:       &role.ID,
			UserType:     userType,
			IsActive:     true,
		}
		if err := s.dir.CreateUser(ctx, user); err != nil {
			if isDuplicate(err) {
				return emailExists()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, "failed to register user", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"company_id", req.CompanyID,
		"user_id", user.ID,
		"registered_by", req.UserID)
	return user, nil
}

// UpdateUser applies a partial update. Non-privileged requesters may only
// change their own password.
func (s *Service) UpdateUser(ctx context.Context, req auth.Requester, targetID int64, dto UpdateUserDTO) (*tenant.User, error) {
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	res := auth.Resource{CompanyID: target.CompanyID, OwnerID: target.ID, Fields: dto.Fields()}
	if err := s.policy.Authorize(req, auth.OpUserUpdate, res); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.UserType != nil {
		if err := s.checkGrant(req, tenant.UserType(*dto.UserType)); err != nil {
			return nil, err
		}
	}

	var hash string
	if dto.Password != nil {
		if hash, err = s.hasher.Hash(*dto.Password); err != nil {
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
	}

	var updated *tenant.User
	err = s.locked(ctx, lock.CompanyKey(target.CompanyID), func(ctx context.Context) error {
		user, err := s.dir.GetUser(ctx, targetID)
		if err != nil {
			return err
		}

		if hash != "" {
			user.PasswordHash = hash
		}
		if dto.changesRole() {
			if err := s.applyRoleChanges(ctx, user, dto); err != nil {
				return err
			}
		}
		if dto.UserType != nil {
			user.UserType = tenant.UserType(*dto.UserType)
		}

		if err := s.dir.UpdateUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, "failed to update user", err)
	}

	s.logger.InfoContext(ctx, "user updated",
		"user_id", targetID,
		"updated_by", req.UserID,
		"fields", strings.Join(dto.Fields(), ","))
	return updated, nil
}

// DeleteUser hard-deletes a user and removes their role once nobody else holds
// it. The last active manager of a company cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, req auth.Requester, targetID int64, dto ConfirmDTO) (*DeleteUserResult, error) {
	if err := s.policy.Authorize(req, auth.OpUserDelete, auth.Resource{CompanyID: req.CompanyID}); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpUserDelete, auth.Resource{CompanyID: target.CompanyID, OwnerID: target.ID}); err != nil {
		return nil, err
	}

	result := &DeleteUserResult{UserID: targetID}
	err = s.locked(ctx, lock.CompanyKey(target.CompanyID), func(ctx context.Context) error {
		user, err := s.dir.GetUser(ctx, targetID)
		if err != nil {
			return err
		}

		if user.UserType == tenant.UserTypeManager {
			others, err := s.dir.CountActiveManagers(ctx, user.CompanyID, user.ID)
			if err != nil {
				return err
			}
			if others == 0 {
				return apperrors.NewConflictError("cannot delete the last active manager of the company", apperrors.ErrCodeLastManager)
			}
		}

		if err := s.dir.DeleteUser(ctx, user.ID); err != nil {
			return err
		}

		if !user.HasRole() {
			return nil
		}
		refs, err := s.dir.CountUsersWithRole(ctx, *user.RoleID)
		if err != nil {
			return err
		}
		if refs == 0 {
			if err := s.dir.DeleteRole(ctx, *user.RoleID); err != nil && !errors.Is(err, tenant.ErrRoleNotFound) {
				return err
			}
			result.RoleDeleted = true
		}
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, "failed to delete user", err)
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", targetID,
		"deleted_by", req.UserID,
		"role_deleted", result.RoleDeleted)
	return result, nil
}

// DeleteCompany soft-deletes the requester's company and deactivates every
// active user in it. Roles and expenses are left untouched.
func (s *Service) DeleteCompany(ctx context.Context, req auth.Requester, companyID int64, dto ConfirmDTO) (*DeleteCompanyResult, error) {
	if err := s.policy.Authorize(req, auth.OpCompanyDelete, auth.Resource{CompanyID: companyID}); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	result := &DeleteCompanyResult{CompanyID: companyID}
	err := s.locked(ctx, lock.CompanyKey(companyID), func(ctx context.Context) error {
		if _, err := s.activeCompany(ctx, companyID); err != nil {
			return err
		}

		deactivated, err := s.dir.DeactivateCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if !deactivated {
			return companyNotFound()
		}

		n, err := s.dir.DeactivateCompanyUsers(ctx, companyID)
		if err != nil {
			return err
		}
		result.UsersDeactivated = n
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, "failed to delete company", err)
	}

	if s.publisher != nil {
		event := events.NewCompanyDeactivatedEvent(companyID, req.UserID, result.UsersDeactivated)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}

	s.logger.InfoContext(ctx, "company deactivated",
		"company_id", companyID,
		"deleted_by", req.UserID,
		"users_deactivated", result.UsersDeactivated)
	return result, nil
}

func (s *Service) GetCompany(ctx context.Context, req auth.Requester, companyID int64) (*tenant.Company, error) {
	if err := s.policy.Authorize(req, auth.OpCompanyRead, auth.Resource{CompanyID: companyID}); err != nil {
		return nil, err
	}
	company, err := s.dir.GetCompany(ctx, companyID)
	if err != nil {
		return nil, s.failure(ctx, "failed to get company", err)
	}
	return company, nil
}

func (s *Service) ListCompanies(ctx context.Context, req auth.Requester) ([]*tenant.Company, error) {
	if err := s.policy.Authorize(req, auth.OpCompanyList, auth.Resource{}); err != nil {
		return nil, err
	}
	companies, err := s.dir.ListCompanies(ctx)
	if err != nil {
		return nil, s.failure(ctx, "failed to list companies", err)
	}
	return companies, nil
}

func (s *Service) GetUser(ctx context.Context, req auth.Requester, id int64) (*tenant.User, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpUserRead, auth.Resource{CompanyID: user.CompanyID, OwnerID: user.ID}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, req auth.Requester) ([]*tenant.User, error) {
	if err := s.policy.Authorize(req, auth.OpUserList, auth.Resource{CompanyID: req.CompanyID}); err != nil {
		return nil, err
	}
	users, err := s.dir.ListUsers(ctx, req.CompanyID)
	if err != nil {
		return nil, s.failure(ctx, "failed to list users", err)
	}
	return users, nil
}

// resolveOrCreateRole implements the registration path: id or exact title
// reuse, creation otherwise.
func (s *Service) resolveOrCreateRole(ctx context.Context, companyID int64, dto RegisterUserDTO) (*tenant.Role, error) {
	if dto.RoleID != nil {
		role, err := s.dir.GetRole(ctx, companyID, *dto.RoleID)
		if errors.Is(err, tenant.ErrRoleNotFound) {
			return nil, roleNotFound()
		}
		return role, err
	}

	title := strings.TrimSpace(dto.Role)
	role, err := s.dir.FindRoleByTitle(ctx, companyID, title)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, tenant.ErrRoleNotFound) {
		return nil, err
	}

	// a case-insensitive twin would collide with the new role
	if _, err := s.dir.FindRoleByKey(ctx, companyID, tenant.NormalizeRoleTitle(title)); err == nil {
		return nil, roleExists(title)
	} else if !errors.Is(err, tenant.ErrRoleNotFound) {
		return nil, err
	}

	limit := decimal.Zero
	if dto.ApprovalLimit != nil {
		limit = *dto.ApprovalLimit
	}
	role = &tenant.Role{CompanyID: companyID, Title: title, ApprovalLimit: limit}
	if err := s.dir.CreateRole(ctx, role); err != nil {
		if isDuplicate(err) {
			return nil, roleExists(title)
		}
		return nil, err
	}
	return role, nil
}

// applyRoleChanges implements the update path: the role is looked up by id or
// case-insensitive title and never created. Renames and limit changes apply to
// that role, or to the user's current role when none was named.
func (s *Service) applyRoleChanges(ctx context.Context, user *tenant.User, dto UpdateUserDTO) error {
	var role *tenant.Role
	switch {
	case dto.RoleID != nil:
		r, err := s.dir.GetRole(ctx, user.CompanyID, *dto.RoleID)
		if errors.Is(err, tenant.ErrRoleNotFound) {
			return roleNotFound()
		}
		if err != nil {
			return err
		}
		role = r
	case dto.Role != nil:
		r, err := s.dir.FindRoleByKey(ctx, user.CompanyID, tenant.NormalizeRoleTitle(*dto.Role))
		if errors.Is(err, tenant.ErrRoleNotFound) {
			return apperrors.NewValidationError(
				"role "+strings.TrimSpace(*dto.Role)+" does not exist in this company, create it first",
				apperrors.ErrCodeRoleNotFound)
		}
		if err != nil {
			return err
		}
		role = r
	default:
		if !user.HasRole() {
			return apperrors.NewValidationError("user has no role assigned", apperrors.ErrCodeRoleMissing)
		}
		r, err := s.dir.GetRole(ctx, user.CompanyID, *user.RoleID)
		if errors.Is(err, tenant.ErrRoleNotFound) {
			return roleNotFound()
		}
		if err != nil {
			return err
		}
		role = r
	}

	changed := false
	if dto.RoleTitleNew != nil {
		title := strings.TrimSpace(*dto.RoleTitleNew)
		twin, err := s.dir.FindRoleByKey(ctx, user.CompanyID, tenant.NormalizeRoleTitle(title))
		switch {
		case err == nil && twin.ID != role.ID:
			return roleExists(title)
		case err != nil && !errors.Is(err, tenant.ErrRoleNotFound):
			return err
		}
		role.Title = title
		changed = true
	}
	if dto.ApprovalLimit != nil {
		role.ApprovalLimit = *dto.ApprovalLimit
		changed = true
	}

	if changed {
		if err := s.dir.UpdateRole(ctx, role); err != nil {
			if isDuplicate(err) {
				return roleExists(role.Title)
			}
			return err
		}
	}
	user.RoleID = &role.ID
	return nil
}

// checkGrant keeps admin a type only admins can hand out.
func (s *Service) checkGrant(req auth.Requester, userType tenant.UserType) error {
	if userType == tenant.UserTypeAdmin && !req.IsAdmin() {
		return apperrors.NewForbiddenError("only admins can grant the admin user type", apperrors.ErrCodeInsufficientRole)
	}
	return nil
}

// locked runs fn inside one transaction while holding key.
func (s *Service) locked(ctx context.Context, key string, fn txFunc) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return apperrors.NewInternalError("failed to acquire lock", err)
	}
	defer release()
	return s.tx.WithinTransaction(ctx, fn)
}

func (s *Service) activeCompany(ctx context.Context, companyID int64) (*tenant.Company, error) {
	company, err := s.dir.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, companyNotFound()
	}
	return company, nil
}

func (s *Service) loadUser(ctx context.Context, id int64) (*tenant.User, error) {
	user, err := s.dir.GetUser(ctx, id)
	if err != nil {
		return nil, s.failure(ctx, "failed to get user", err)
	}
	return user, nil
}

// failure maps directory sentinels to AppErrors and wraps anything else as internal.
func (s *Service) failure(ctx context.Context, msg string, err error) error {
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, tenant.ErrCompanyNotFound):
		return companyNotFound()
	case errors.Is(err, tenant.ErrUserNotFound):
		return apperrors.NewNotFoundError("user not found", apperrors.ErrCodeUserNotFound)
	case errors.Is(err, tenant.ErrRoleNotFound):
		return roleNotFound()
	case isDuplicate(err):
		return apperrors.NewConflictError("record already exists", apperrors.ErrCodeDuplicate)
	}
	s.logger.ErrorContext(ctx, msg, "error", err)
	return apperrors.NewInternalError(msg, err)
}

func companyNotFound() error {
	return apperrors.NewNotFoundError("company not found", apperrors.ErrCodeCompanyNotFound)
}

func companyExists() error {
	return apperrors.NewConflictError("company with this name already exists", apperrors.ErrCodeCompanyExists)
}

func emailExists() error {
	return apperrors.NewConflictError("user with this email already exists", apperrors.ErrCodeEmailExists)
}

func roleNotFound() error {
	return apperrors.NewValidationError("role not found in this company", apperrors.ErrCodeRoleNotFound)
}

func roleExists(title string) error {
	return apperrors.NewConflictError("role "+title+" already exists in this company", apperrors.ErrCodeRoleExists)
}
