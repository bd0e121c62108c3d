package products

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

// ErrTitleTaken signals a catalog title collision
var ErrTitleTaken = goerrors.New("Product with this title already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict)

// ErrNotFound signals a missing catalog entry
var ErrNotFound = goerrors.New("Product not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// CreateInput is the input to Create
type CreateInput struct {
	Title       string
	Description string
	Price       float64
	Quantity    int
	IsActive    *bool
}

// UpdateInput is the field-wise patch applied by Update. Nil fields are
// left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Price       *float64
	Quantity    *int
	IsActive    *bool
}

// Service owns catalog reads and writes
type Service struct {
	store  Store
	logger auth.Logger
}

// NewService builds the catalog service
func NewService(store Store) *Service {
	return &Service{
		store:  store,
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

// Create adds a catalog entry. Titles are unique.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	title := strings.TrimSpace(in.Title)

	if _, err := s.store.GetByTitle(ctx, title); err == nil {
		return nil, ErrTitleTaken
	} else if !isNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing product")
	}

	record := &Product{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Quantity:    in.Quantity,
		IsActive:    true,
	}
	if in.IsActive != nil {
		record.IsActive = *in.IsActive
	}

	created, err := s.store.Add(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create product")
	}

	return created, nil
}

// List returns the whole catalog, newest first
func (s *Service) List(ctx context.Context) ([]*Product, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list products")
	}
	if records == nil {
		records = []*Product{}
	}
	return records, nil
}

// GetByID returns one catalog entry
func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	record, err := s.store.GetByID(ctx, productID.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up product")
	}

	return record, nil
}

// Update applies a field-wise patch. A title change that collides with a
// different entry is a conflict.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Product, error) {
	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != "" && title != record.Title {
			if _, err := s.store.GetByTitleExcluding(ctx, title, record.ID); err == nil {
				return nil, ErrTitleTaken
			} else if !isNotFound(err) {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing product")
			}
			record.Title = title
		}
	}

	if in.Description != nil {
		record.Description = strings.TrimSpace(*in.Description)
	}

	if in.Price != nil {
		record.Price = *in.Price
	}

	if in.Quantity != nil {
		record.Quantity = *in.Quantity
	}

	if in.IsActive != nil {
		record.IsActive = *in.IsActive
	}

	updated, err := s.store.Amend(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update product")
	}

	return updated, nil
}

// Delete removes a catalog entry, reporting not found when nothing matched
func (s *Service) Delete(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	rows, err := s.store.Remove(ctx, productID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete product")
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
