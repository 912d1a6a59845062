package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type branchRepository interface {
	List(ctx context.Context) ([]models.Branch, error)
	FindByID(ctx context.Context, id string) (*models.Branch, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, branch *models.Branch) error
	Update(ctx context.Context, branch *models.Branch) error
}

// BranchRequest creates or updates a school location.
type BranchRequest struct {
	Name      string  `json:"name" validate:"required"`
	Location  string  `json:"location" validate:"required"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	ManagerID *string `json:"manager_id"`
	Active    *bool   `json:"active"`
}

// BranchService manages school locations. Branch names are unique.
type BranchService struct {
	repo      branchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBranchService constructs a BranchService.
func NewBranchService(repo branchRepository, validate *validator.Validate, logger *zap.Logger) *BranchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{repo: repo, validator: validate, logger: logger}
}

// List returns all branches.
func (s *BranchService) List(ctx context.Context) ([]models.Branch, error) {
	branches, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	if branches == nil {
		branches = []models.Branch{}
	}
	return branches, nil
}

// Get returns one branch by id.
func (s *BranchService) Get(ctx context.Context, id string) (*models.Branch, error) {
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	return branch, nil
}

// Create opens a location. A taken name reports a duplicate.
func (s *BranchService) Create(ctx context.Context, req BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check branch name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "a branch with this name already exists")
	}

	branch := &models.Branch{
		Name:      req.Name,
		Location:  req.Location,
		Address:   req.Address,
		Phone:     req.Phone,
		ManagerID: req.ManagerID,
		Active:    true,
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}

	s.logger.Info("branch created", zap.String("branch_id", branch.ID), zap.String("name", branch.Name))
	return branch, nil
}

// Update edits a location.
func (s *BranchService) Update(ctx context.Context, id string, req BranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != branch.Name {
		exists, err := s.repo.ExistsByName(ctx, req.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check branch name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "a branch with this name already exists")
		}
	}

	branch.Name = req.Name
	branch.Location = req.Location
	branch.Address = req.Address
	branch.Phone = req.Phone
	branch.ManagerID = req.ManagerID
	if req.Active != nil {
		branch.Active = *req.Active
	}
	if err := s.repo.Update(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	return branch, nil
}
