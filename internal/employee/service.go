package employee

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	employeeDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/employee"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*employeeDatamodel.Employee, error)
	GetByID(ctx context.Context, id string) (*employeeDatamodel.Employee, error)
	GetByIDs(ctx context.Context, ids []string) ([]*employeeDatamodel.Employee, error)
	GetByEmail(ctx context.Context, email string) (*employeeDatamodel.Employee, error)
	Create(ctx context.Context, employee *employeeDatamodel.Employee) error
	// Save writes the row; a non-nil Permissions slice replaces the stored grants.
	Save(ctx context.Context, employee *employeeDatamodel.Employee) error
	UpdateStatus(ctx context.Context, id string, status string) error
}

type Service struct {
	repo       RepositoryAPI
	publisher  events.Publisher
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Employee, error) {
	if !auth.CanManageEmployees(actor) {
		return nil, internal.ErrAuthorizationDenied
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list employees", "error", err)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

// GetByID serves managers of employees and the employee themselves.
func (s *Service) GetByID(ctx context.Context, actor *auth.Principal, id string) (*Employee, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	if actor.ID != id && !auth.CanManageEmployees(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Employee, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrEmployeeNotFound) {
			s.logger.Error("failed to get employee", "error", err, "employee_id", id)
		}
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Principal, dto CreateEmployeeDTO) (*Employee, error) {
	if !auth.CanManageEmployees(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !canAssignRole(actor, dto.Role) {
		s.logger.Warn("role assignment denied", "actor_id", actor.ID, "role", dto.Role)
		return nil, internal.ErrAuthorizationDenied
	}
	if len(dto.Permissions) > 0 && !auth.HasPermission(actor, auth.PermAssignPermissions) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := s.ensureEmailFree(ctx, dto.Email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	e := &Employee{
		ID:               uuid.NewString(),
		FirstName:        dto.FirstName,
		LastName:         dto.LastName,
		FullName:         FullName(dto.FirstName, dto.LastName),
		Email:            dto.Email,
		Phone:            dto.Phone,
		Role:             dto.Role,
		Department:       dto.Department,
		Status:           dto.Status,
		HireDate:         dto.HireDate,
		Address:          dto.Address,
		EmergencyContact: dto.EmergencyContact,
		Skills:           dto.Skills,
		Notes:            dto.Notes,
		Permissions:      dto.Permissions,
		PasswordHash:     string(hash),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if e.Permissions == nil {
		e.Permissions = map[string]bool{}
	}
	if e.Skills == nil {
		e.Skills = []string{}
	}

	row := ToDataModel(e)
	grantedBy := actor.ID
	row.Permissions = PermissionRows(e.ID, e.Permissions, &grantedBy)

	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create employee", "error", err, "email", dto.Email)
		return nil, internal.NewStoreError("employee", err)
	}

	s.logger.Info("employee created", "employee_id", e.ID, "role", e.Role, "actor_id", actor.ID)
	s.changed(ctx, e.ID, "create")
	return e, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateEmployeeDTO) (*Employee, error) {
	if !auth.CanManageEmployees(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Role == auth.RoleAdmin && !actor.IsAdmin() {
		return nil, internal.ErrAuthorizationDenied
	}
	if dto.privileged() && !auth.HasPermission(actor, auth.PermAssignPermissions) {
		s.logger.Warn("privileged employee update denied", "actor_id", actor.ID, "employee_id", id)
		return nil, internal.ErrAuthorizationDenied
	}
	if dto.Role != nil && !canAssignRole(actor, *dto.Role) {
		return nil, internal.ErrAuthorizationDenied
	}
	if dto.Status != nil && *dto.Status == StatusTerminated && actor.ID == id {
		return nil, ErrSelfTermination
	}
	if dto.Email != nil && *dto.Email != e.Email {
		if err := s.ensureEmailFree(ctx, *dto.Email, id); err != nil {
			return nil, err
		}
	}

	dto.Apply(e)
	if dto.Role != nil {
		e.Role = *dto.Role
	}
	if dto.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		e.PasswordHash = string(hash)
	}
	e.UpdatedAt = time.Now()

	row := ToDataModel(e)
	row.Permissions = nil
	if dto.Permissions != nil {
		e.Permissions = dto.Permissions
		grantedBy := actor.ID
		row.Permissions = PermissionRows(id, dto.Permissions, &grantedBy)
	}

	if err := s.repo.Save(ctx, row); err != nil {
		s.logger.Error("failed to update employee", "error", err, "employee_id", id)
		return nil, internal.NewStoreError("employee", err)
	}

	s.logger.Info("employee updated", "employee_id", id, "actor_id", actor.ID, "privileged", dto.privileged())
	s.changed(ctx, id, "update")
	return e, nil
}

// UpdateSelf lets any authenticated employee edit their own contact details.
func (s *Service) UpdateSelf(ctx context.Context, actor *auth.Principal, dto SelfUpdateDTO) (*Employee, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}

	e, err := s.get(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, auth.ErrProfileNotFound
		}
		return nil, err
	}

	dto.Apply(e)
	e.UpdatedAt = time.Now()

	row := ToDataModel(e)
	row.Permissions = nil
	if err := s.repo.Save(ctx, row); err != nil {
		s.logger.Error("failed to update own profile", "error", err, "employee_id", actor.ID)
		return nil, internal.NewStoreError("profile", err)
	}

	s.changed(ctx, e.ID, "update")
	return e, nil
}

// Delete terminates the employee. Rows are never removed so task history keeps its references.
func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if !auth.CanManageEmployees(actor) {
		return internal.ErrAuthorizationDenied
	}
	if actor.ID == id {
		return ErrSelfTermination
	}

	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if e.Role == auth.RoleAdmin && !actor.IsAdmin() {
		return internal.ErrAuthorizationDenied
	}

	if err := s.repo.UpdateStatus(ctx, id, string(StatusTerminated)); err != nil {
		s.logger.Error("failed to terminate employee", "error", err, "employee_id", id)
		return internal.NewStoreError("employee", err)
	}

	s.logger.Info("employee terminated", "employee_id", id, "actor_id", actor.ID)
	s.changed(ctx, id, "update")
	return nil
}

// Directory resolves employee ids to display names. Unknown ids are absent from the result.
func (s *Service) Directory(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.repo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		s.logger.Error("failed to resolve employee directory", "error", err, "count", len(ids))
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = FullName(row.FirstName, row.LastName)
	}
	return names, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil
		}
		return internal.NewStoreError("employee", err)
	}
	if existing.ID != selfID {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *Service) changed(ctx context.Context, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewCollectionChangedEvent(Collection, id, op)); err != nil {
		s.logger.Warn("failed to publish event", "collection", Collection, "error", err)
	}
}

// canAssignRole: Admin creates anyone, create_managers unlocks Manager, Admin is Admin-only.
func canAssignRole(actor *auth.Principal, role auth.Role) bool {
	switch role {
	case auth.RoleAdmin:
		return actor.IsAdmin()
	case auth.RoleManager:
		return auth.HasPermission(actor, auth.PermCreateManagers)
	case auth.RoleEmployee:
		return true
	}
	return false
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
