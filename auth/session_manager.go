package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTokenTTL is how long a password-reset token stays actionable
const ResetTokenTTL = time.Hour

// SessionManager owns every transition of the refresh-token and reset-token
// lifecycle. The stores underneath are passive; nothing else mutates session
// state.
type SessionManager struct {
	repo   RepositoryManager
	tokens *TokenService
	cfg    Config
	logger Logger
}

var _ SessionLifecycle = (*SessionManager)(nil)

// NewSessionManager wires the lifecycle manager
func NewSessionManager(repo RepositoryManager, tokens *TokenService, cfg Config) *SessionManager {
	return &SessionManager{
		repo:   repo,
		tokens: tokens,
		cfg:    cfg,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the manager
func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Login verifies credentials, opens a new session in the ledger, and stamps
// the login time. Unknown email and wrong password return the same error so
// responses cannot be used to enumerate accounts.
func (m *SessionManager) Login(ctx context.Context, email, password, deviceInfo string) (*LoginResult, error) {
	user, err := m.repo.Users().GetActiveByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStoreError(err, "failed to look up user for login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := m.tokens.IssueAccessToken(user, "", nil)
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue access token")
	}

	refreshToken, err := m.tokens.IssueRefreshToken(user, "")
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue refresh token")
	}

	if _, err := m.repo.RefreshTokens().Issue(ctx, &RefreshToken{
		UserID:     user.ID,
		Token:      refreshToken,
		DeviceInfo: deviceInfo,
		ExpiresAt:  TokenExpiry(m.cfg.GetRefreshTTL()),
	}); err != nil {
		return nil, wrapStoreError(err, "failed to persist refresh token")
	}

	if err := m.repo.Users().TrackSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, wrapStoreError(err, "failed to stamp last login")
	}

	now := time.Now()
	user.LastLogin = &now

	return &LoginResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Register creates a new active account. It does not log the user in.
func (m *SessionManager) Register(ctx context.Context, profile RegisterProfile) (*User, error) {
	if _, err := m.repo.Users().GetByEmail(ctx, profile.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !isNotFound(err) {
		return nil, wrapStoreError(err, "failed to check for existing email")
	}

	hash, err := HashPassword(profile.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	user, err := m.repo.Users().Register(ctx, &User{
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Email:        profile.Email,
		PasswordHash: hash,
		Status:       UserStatusActive,
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to create user")
	}

	return user, nil
}

// ChangePassword verifies the current password before applying a new one.
// A no-op change is rejected.
func (m *SessionManager) ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error {
	if current == "" || newPassword == "" || confirm == "" {
		return goerrors.New("Current password, new password, and confirm password are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return goerrors.New("User not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return wrapStoreError(err, "failed to look up user for password change")
	}

	if err := ComparePasswordAndHash(current, user.PasswordHash); err != nil {
		return goerrors.New("Current password is incorrect", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if newPassword != confirm {
		return goerrors.New("New password and confirm password do not match", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := ComparePasswordAndHash(newPassword, user.PasswordHash); err == nil {
		return goerrors.New("New password must be different from current password", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if err := m.repo.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return wrapStoreError(err, "failed to update password hash")
	}

	return nil
}

// ForgotPassword mints a fresh reset token after clearing any prior tokens
// for the same (user, email), so at most one token is ever actionable.
// The caller composes the reset URL; the core hands back token and expiry.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	user, err := m.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, goerrors.New("Email not found in our system. Please check and try again.", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, wrapStoreError(err, "failed to look up user for password reset")
	}

	switch user.Status {
	case UserStatusInactive:
		return nil, goerrors.New("Your account is inactive. Please contact support or check your email for activation instructions.", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	case UserStatusNotVerified:
		return nil, goerrors.New("Your account is not verified. Please check your email for verification instructions.", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	token, err := randomTokenHex(32)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	normalized := NormalizeEmail(email)
	expiresAt := time.Now().Add(ResetTokenTTL)

	if err := m.repo.PasswordResets().DeleteForUserEmail(ctx, user.ID, normalized); err != nil {
		return nil, wrapStoreError(err, "failed to clear prior reset tokens")
	}

	if _, err := m.repo.PasswordResets().Issue(ctx, &PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		Email:     normalized,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, wrapStoreError(err, "failed to create reset token")
	}

	return &ResetRequest{
		Token:     token,
		Email:     normalized,
		ExpiresAt: expiresAt,
	}, nil
}

// ResetPassword consumes a reset token exactly once. Not-found, expired,
// and already-used tokens all yield the same error so guessing tokens
// returns no feedback.
func (m *SessionManager) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if token == "" || newPassword == "" || confirm == "" {
		return goerrors.New("Token, new password and confirm password are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if newPassword != confirm {
		return goerrors.New("New password and confirm password do not match", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	reset, err := m.repo.PasswordResets().GetLive(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return ErrResetTokenInvalid
		}
		return wrapStoreError(err, "failed to look up reset token")
	}

	user, err := m.repo.Users().GetActiveByID(ctx, reset.UserID)
	if err != nil {
		if isNotFound(err) {
			return goerrors.New("User not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return wrapStoreError(err, "failed to look up user for password reset")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.repo.Users().UpdatePasswordHashTx(ctx, tx, user.ID, hash); err != nil {
			return err
		}

		rows, err := m.repo.PasswordResets().ConsumeTx(ctx, tx, reset.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			// A concurrent request consumed it first.
			return ErrResetTokenInvalid
		}
		return nil
	})
	if err != nil {
		return wrapStoreError(err, "failed to finalize password reset")
	}

	return nil
}

// Refresh exchanges a live refresh token for a brand-new pair, rotating the
// ledger row in place. The superseded token value is dead the moment the
// rotation lands.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, goerrors.New("Refresh token is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		if IsTokenExpiredError(err) {
			// The row is unusable either way, so the cleanup is best effort.
			if cleanupErr := m.repo.RefreshTokens().DeleteLiveByToken(ctx, refreshToken); cleanupErr != nil {
				m.logger.Warn("failed to clean up expired refresh token: %v", cleanupErr)
			}
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrRefreshTokenInvalid
	}

	if claims.TokenType != TokenTypeRefresh {
		return nil, goerrors.New("Invalid token type", goerrors.CategoryAuth).
			WithTextCode(TextCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	record, err := m.repo.RefreshTokens().GetLive(ctx, userID, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionInvalidated
		}
		return nil, wrapStoreError(err, "failed to look up refresh token")
	}

	user, err := m.repo.Users().GetActiveByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerrors.New("User not found or inactive", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized)
		}
		return nil, wrapStoreError(err, "failed to look up user for token refresh")
	}

	accessToken, err := m.tokens.IssueAccessToken(user, "", nil)
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue access token")
	}

	newRefreshToken, err := m.tokens.IssueRefreshToken(user, "")
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue refresh token")
	}

	rows, err := m.repo.RefreshTokens().Rotate(ctx, record.ID, refreshToken, newRefreshToken, TokenExpiry(m.cfg.GetRefreshTTL()))
	if err != nil {
		return nil, wrapStoreError(err, "failed to rotate refresh token")
	}
	if rows == 0 {
		// A concurrent exchange already rotated this token out from under us.
		return nil, ErrSessionInvalidated
	}

	return &LoginResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// SSOLogin opens a distinct session for a registered application and wraps
// the whole response inside one signed envelope token.
func (m *SessionManager) SSOLogin(ctx context.Context, userID, applicationID, deviceInfo string) (*SSOLoginResult, error) {
	if applicationID == "" {
		return nil, goerrors.New("Application ID is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user, err := m.repo.Users().GetActiveByID(ctx, uid)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, wrapStoreError(err, "failed to look up user for SSO login")
	}

	appID, err := uuid.Parse(applicationID)
	if err != nil {
		return nil, ErrApplicationNotFound
	}

	application, err := m.repo.Applications().GetActiveByID(ctx, appID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, wrapStoreError(err, "failed to look up application for SSO login")
	}

	appClaim := application.Claim()

	accessToken, err := m.tokens.IssueAccessToken(user, "", appClaim)
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue access token")
	}

	refreshToken, err := m.tokens.IssueRefreshToken(user, "")
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue refresh token")
	}

	// Unmapped application ids resolve to a null base URL, not an error.
	var baseURL *string
	if url := m.cfg.GetApplicationBaseURL(application.ID.String()); url != "" {
		baseURL = &url
	}

	ssoToken, err := m.tokens.IssueSSOResponseToken(SSOResponsePayload{
		Message:            "Login successful",
		User:               user.Public(),
		Application:        appClaim,
		ApplicationBaseURL: baseURL,
		Tokens: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to issue SSO response token")
	}

	if deviceInfo == "" {
		deviceInfo = "SSO Login"
	}

	// SSO sessions are their own sessions, so this is a new ledger row,
	// never a rotation.
	if _, err := m.repo.RefreshTokens().Issue(ctx, &RefreshToken{
		UserID:     user.ID,
		Token:      refreshToken,
		DeviceInfo: deviceInfo,
		ExpiresAt:  TokenExpiry(m.cfg.GetRefreshTTL()),
	}); err != nil {
		return nil, wrapStoreError(err, "failed to persist refresh token")
	}

	if err := m.repo.Users().TrackSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, wrapStoreError(err, "failed to stamp last login")
	}

	return &SSOLoginResult{
		User:               user.Public(),
		Application:        appClaim,
		ApplicationBaseURL: baseURL,
		Tokens:             SSOTokens{SSOToken: ssoToken},
	}, nil
}

// Logout revokes exactly the one session behind the given refresh token.
// Identity comes from the access token first, expired or not, falling back
// to the refresh token; a stale session must still be able to log out.
func (m *SessionManager) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken == "" {
		return goerrors.New("Refresh token is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	var userID string

	if accessToken != "" {
		if claims, err := m.tokens.VerifyAccessToken(accessToken, WithIgnoreExpiration()); err == nil {
			userID = claims.UserID()
		} else {
			m.logger.Debug("failed to decode access token during logout: %v", err)
		}
	}

	if userID == "" {
		if claims, err := m.tokens.VerifyRefreshToken(refreshToken); err == nil {
			userID = claims.UserID()
		} else {
			m.logger.Debug("failed to decode refresh token during logout: %v", err)
		}
	}

	if userID == "" {
		return goerrors.New("Unable to determine user from provided tokens", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return goerrors.New("Unable to determine user from provided tokens", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	// Partial revocation is unacceptable, so the single-row update runs in
	// a transaction that rolls back when no row matched.
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows, err := m.repo.RefreshTokens().RevokeTx(ctx, tx, uid, refreshToken)
		if err != nil {
			return err
		}
		if rows == 0 {
			return goerrors.New("Token not found or already revoked", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil
	})
	if err != nil {
		return wrapStoreError(err, "failed to revoke refresh token")
	}

	return nil
}

// LogoutAllDevices revokes every live session for the user. Succeeds even
// when there is nothing to revoke.
func (m *SessionManager) LogoutAllDevices(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return goerrors.New("Unable to determine user", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := m.repo.RefreshTokens().RevokeAllForUser(ctx, uid); err != nil {
		return wrapStoreError(err, "failed to revoke user sessions")
	}

	return nil
}

func randomTokenHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
