package products

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence surface of the catalog
type Store interface {
	repository.Repository[*Product]

	Add(ctx context.Context, record *Product) (*Product, error)
	Amend(ctx context.Context, record *Product) (*Product, error)
	GetByTitle(ctx context.Context, title string) (*Product, error)
	GetByTitleExcluding(ctx context.Context, title string, id uuid.UUID) (*Product, error)
	All(ctx context.Context) ([]*Product, error)
	Remove(ctx context.Context, id uuid.UUID) (int64, error)
}

type store struct {
	repository.Repository[*Product]
	db *bun.DB
}

var _ Store = (*store)(nil)

// NewStore builds the catalog repository
func NewStore(db *bun.DB) Store {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "title"
		},
	})

	return &store{
		Repository: repo,
		db:         db,
	}
}

func (s *store) Add(ctx context.Context, record *Product) (*Product, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return s.Repository.CreateTx(ctx, s.db, record)
}

// Amend saves a modified record under its own id
func (s *store) Amend(ctx context.Context, record *Product) (*Product, error) {
	return s.Repository.UpdateTx(ctx, s.db, record, repository.UpdateByID(record.ID.String()))
}

func (s *store) GetByTitle(ctx context.Context, title string) (*Product, error) {
	record := &Product{}
	err := s.db.NewSelect().Model(record).
		Where("?TableAlias.title = ?", title).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetByTitleExcluding finds a title collision owned by a different record
func (s *store) GetByTitleExcluding(ctx context.Context, title string, id uuid.UUID) (*Product, error) {
	record := &Product{}
	err := s.db.NewSelect().Model(record).
		Where("?TableAlias.title = ?", title).
		Where("?TableAlias.id != ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// All returns the catalog newest first
func (s *store) All(ctx context.Context) ([]*Product, error) {
	var records []*Product
	err := s.db.NewSelect().Model(&records).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store) Remove(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.db.NewDelete().Model((*Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
