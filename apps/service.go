// Package apps manages the registry of applications that may be targeted
// by SSO logins.
package apps

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/centralhq/central/auth"
)

// ErrNameTaken signals a registry name collision
var ErrNameTaken = goerrors.New("Application with this name already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict)

// ErrNotFound signals a missing registry entry
var ErrNotFound = goerrors.New("Application not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// CreateInput is the input to Create
type CreateInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// UpdateInput is the field-wise patch applied by Update. Nil fields are
// left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Listing is a page of registry entries
type Listing struct {
	Items []*auth.Application `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// Service owns registry reads and writes
type Service struct {
	repo   auth.RepositoryManager
	logger auth.Logger
}

// NewService builds the registry service
func NewService(repo auth.RepositoryManager) *Service {
	return &Service{
		repo:   repo,
		logger: auth.DefaultLogger(),
	}
}

// WithLogger overrides the service logger
func (s *Service) WithLogger(logger auth.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Create registers a new application. Names are unique across the registry.
func (s *Service) Create(ctx context.Context, in CreateInput) (*auth.Application, error) {
	name := strings.TrimSpace(in.Name)

	if _, err := s.repo.Applications().GetByName(ctx, name); err == nil {
		return nil, ErrNameTaken
	} else if !isNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing application")
	}

	record := &auth.Application{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
	}
	if in.IsActive != nil {
		record.IsActive = *in.IsActive
	}

	created, err := s.repo.Applications().Register(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create application")
	}

	return created, nil
}

// Update applies a field-wise patch. A name change that collides with a
// different entry is a conflict.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*auth.Application, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	record, err := s.repo.Applications().GetByID(ctx, appID.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up application")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != "" && name != record.Name {
			if _, err := s.repo.Applications().GetByNameExcluding(ctx, name, record.ID); err == nil {
				return nil, ErrNameTaken
			} else if !isNotFound(err) {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing application")
			}
			record.Name = name
		}
	}

	if in.Description != nil {
		record.Description = strings.TrimSpace(*in.Description)
	}

	if in.IsActive != nil {
		record.IsActive = *in.IsActive
	}

	updated, err := s.repo.Applications().Amend(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update application")
	}

	return updated, nil
}

// List returns a page of active applications, optionally filtered by a
// case-insensitive name search.
func (s *Service) List(ctx context.Context, search string, page, limit int) (*Listing, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	items, total, err := s.repo.Applications().ListActive(ctx, search, page, limit)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list applications")
	}

	if items == nil {
		items = []*auth.Application{}
	}

	return &Listing{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
