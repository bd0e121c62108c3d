package auth

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens is the session ledger. The lifecycle manager owns every
// transition; this layer only exposes the row-matching predicates that give
// rotation and revocation their at-most-once behavior.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	Issue(ctx context.Context, record *RefreshToken) (*RefreshToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, record *RefreshToken) (*RefreshToken, error)
	GetLive(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
	Rotate(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiresAt time.Time) (int64, error)
	RevokeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteLiveByToken(ctx context.Context, token string) error
	HasLiveForUser(ctx context.Context, userID string) (bool, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

// NewRefreshTokensRepository builds the refresh-token ledger over a bun handle
func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) Issue(ctx context.Context, record *RefreshToken) (*RefreshToken, error) {
	return r.IssueTx(ctx, r.db, record)
}

func (r *refreshTokens) IssueTx(ctx context.Context, tx bun.IDB, record *RefreshToken) (*RefreshToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.DeviceInfo == "" {
		record.DeviceInfo = "Unknown device"
	}
	return r.Repository.CreateTx(ctx, tx, record)
}

// GetLive matches exactly the row a refresh exchange may rotate: same token,
// same owner, not revoked, not expired in the store.
func (r *refreshTokens) GetLive(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_revoked = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Rotate overwrites the row in place: new token value, new expiry, refreshed
// creation timestamp. One row per live session, ever. The update matches the
// token it replaces, so of two exchanges racing on the same stale token only
// one lands; zero rows means the caller lost.
func (r *refreshTokens) Rotate(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiresAt time.Time) (int64, error) {
	now := time.Now()
	res, err := r.db.NewUpdate().Model((*RefreshToken)(nil)).
		Set("token = ?", newToken).
		Set("expires_at = ?", expiresAt).
		Set("created_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("token = ?", oldToken).
		Where("is_revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeTx marks the single row matching {user, token, not yet revoked} and
// reports how many rows matched. Zero means the session was already revoked
// or never existed; the caller decides what that means.
func (r *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (int64, error) {
	res, err := tx.NewUpdate().Model((*RefreshToken)(nil)).
		Set("is_revoked = ?", true).
		Set("revoked_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Where("is_revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewUpdate().Model((*RefreshToken)(nil)).
		Set("is_revoked = ?", true).
		Set("revoked_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Exec(ctx)
	return err
}

// DeleteLiveByToken removes a ledger row whose signature already expired.
// Best effort cleanup; the row is unusable either way.
func (r *refreshTokens) DeleteLiveByToken(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Where("is_revoked = ?", false).
		Exec(ctx)
	return err
}

// HasLiveForUser reports whether any non-revoked, non-expired session exists
// for the user. The access guard couples this to signature validity.
func (r *refreshTokens) HasLiveForUser(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, err
	}

	count, err := r.db.NewSelect().Model((*RefreshToken)(nil)).
		Where("user_id = ?", id).
		Where("is_revoked = ?", false).
		Where("expires_at > ?", time.Now()).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PasswordResets is the reset-token side of the ledger
type PasswordResets interface {
	repository.Repository[*PasswordResetToken]

	Issue(ctx context.Context, record *PasswordResetToken) (*PasswordResetToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, record *PasswordResetToken) (*PasswordResetToken, error)
	GetLive(ctx context.Context, token string) (*PasswordResetToken, error)
	DeleteForUserEmail(ctx context.Context, userID uuid.UUID, email string) error
	DeleteForUserEmailTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) error
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error)
}

type passwordResets struct {
	repository.Repository[*PasswordResetToken]
	db *bun.DB
}

var _ PasswordResets = (*passwordResets)(nil)

// NewPasswordResetsRepository builds the reset-token repository
func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordResetToken](db, repository.ModelHandlers[*PasswordResetToken]{
		NewRecord: func() *PasswordResetToken { return &PasswordResetToken{} },
		GetID: func(r *PasswordResetToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *PasswordResetToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (p *passwordResets) Issue(ctx context.Context, record *PasswordResetToken) (*PasswordResetToken, error) {
	return p.IssueTx(ctx, p.db, record)
}

func (p *passwordResets) IssueTx(ctx context.Context, tx bun.IDB, record *PasswordResetToken) (*PasswordResetToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return p.Repository.CreateTx(ctx, tx, record)
}

func (p *passwordResets) GetLive(ctx context.Context, token string) (*PasswordResetToken, error) {
	record := &PasswordResetToken{}
	err := p.db.NewSelect().Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.is_used = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteForUserEmail clears prior tokens for the pair, enforcing the
// single-live-token invariant before a new one is issued.
func (p *passwordResets) DeleteForUserEmail(ctx context.Context, userID uuid.UUID, email string) error {
	return p.DeleteForUserEmailTx(ctx, p.db, userID, email)
}

func (p *passwordResets) DeleteForUserEmailTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) error {
	_, err := tx.NewDelete().Model((*PasswordResetToken)(nil)).
		Where("user_id = ?", userID).
		Where("email = ?", email).
		Exec(ctx)
	return err
}

// ConsumeTx flips is_used conditionally. The is_used predicate, not any
// application lock, is what makes duplicate concurrent consumption lose.
func (p *passwordResets) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int64, error) {
	res, err := tx.NewUpdate().Model((*PasswordResetToken)(nil)).
		Set("is_used = ?", true).
		Set("used_at = ?", time.Now()).
		Where("id = ?", id).
		Where("is_used = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
