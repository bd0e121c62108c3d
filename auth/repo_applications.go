package auth

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Applications is the registry of SSO targets
type Applications interface {
	repository.Repository[*Application]

	Register(ctx context.Context, record *Application) (*Application, error)
	Amend(ctx context.Context, record *Application) (*Application, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*Application, error)
	GetByName(ctx context.Context, name string) (*Application, error)
	GetByNameExcluding(ctx context.Context, name string, id uuid.UUID) (*Application, error)
	ListActive(ctx context.Context, search string, page, limit int) ([]*Application, int, error)
}

type applications struct {
	repository.Repository[*Application]
	db *bun.DB
}

var _ Applications = (*applications)(nil)

// NewApplicationsRepository builds the application registry repository
func NewApplicationsRepository(db *bun.DB) Applications {
	repo := repository.NewRepository[*Application](db, repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(a *Application) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Application, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &applications{
		Repository: repo,
		db:         db,
	}
}

func (a *applications) Register(ctx context.Context, record *Application) (*Application, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, a.db, record)
}

// Amend saves a modified record under its own id
func (a *applications) Amend(ctx context.Context, record *Application) (*Application, error) {
	return a.Repository.UpdateTx(ctx, a.db, record, repository.UpdateByID(record.ID.String()))
}

func (a *applications) GetActiveByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	record := &Application{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *applications) GetByName(ctx context.Context, name string) (*Application, error) {
	record := &Application{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetByNameExcluding finds a name collision owned by a different record,
// the duplicate check an update needs.
func (a *applications) GetByNameExcluding(ctx context.Context, name string, id uuid.UUID) (*Application, error) {
	record := &Application{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.id != ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *applications) ListActive(ctx context.Context, search string, page, limit int) ([]*Application, int, error) {
	var records []*Application

	q := a.db.NewSelect().Model(&records).
		Where("?TableAlias.is_active = ?", true).
		Order("name ASC")

	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("lower(?TableAlias.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if page > 0 && limit > 0 {
		q = q.Limit(limit).Offset((page - 1) * limit)
	}

	count, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}
