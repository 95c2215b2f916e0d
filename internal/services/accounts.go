package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

const (
	verificationTTL   = 24 * time.Hour
	passwordResetTTL  = 15 * time.Minute
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// SessionIssuer issues, rotates and revokes session tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, accountID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// RegisterInput carries a registration request. Avatar and cover paths are
// optional local temporary files.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// AccountService implements registration, verification, login and profile management.
type AccountService struct {
	stores       Stores
	uow          UnitOfWork
	media        MediaStore
	mailer       Mailer
	sessions     SessionIssuer
	resetBaseURL string
	now          func() time.Time
}

// NewAccountService constructs an AccountService. resetBaseURL prefixes the
// password reset links mailed to users.
func NewAccountService(stores Stores, uow UnitOfWork, mediaStore MediaStore, mailer Mailer, sessions SessionIssuer, resetBaseURL string) *AccountService {
	return &AccountService{
		stores:       stores,
		uow:          uow,
		media:        mediaStore,
		mailer:       mailer,
		sessions:     sessions,
		resetBaseURL: strings.TrimSuffix(resetBaseURL, "/"),
		now:          time.Now,
	}
}

// Register stores a pending account and mails its verification token. Earlier
// pending registrations for the same username or email are replaced.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if err := validateRegistration(in); err != nil {
		return err
	}

	exists, err := s.stores.Accounts.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return apperr.Internal("failed to check existing users", err)
	}
	if exists {
		return apperr.Conflict("user with email or username already exists")
	}

	var uploaded []string
	var avatar, cover models.Asset
	if in.AvatarPath != "" {
		upload, err := s.media.Upload(ctx, in.AvatarPath, media.KindImage)
		if err != nil {
			return apperr.Internal("failed to upload avatar", err)
		}
		avatar = upload.Asset
		uploaded = append(uploaded, avatar.Key)
	}
	if in.CoverPath != "" {
		upload, err := s.media.Upload(ctx, in.CoverPath, media.KindImage)
		if err != nil {
			discardMedia(ctx, s.media, uploaded...)
			return apperr.Internal("failed to upload cover image", err)
		}
		cover = upload.Asset
		uploaded = append(uploaded, cover.Key)
	}

	pending, token, err := s.stagePending(ctx, in, avatar, cover)
	if err != nil {
		discardMedia(ctx, s.media, uploaded...)
		return err
	}

	if err := s.mailer.SendVerification(ctx, pending.Email, pending.FullName, token); err != nil {
		if delErr := s.stores.PendingAccounts.Delete(ctx, pending.ID); delErr != nil && !isNotFound(delErr) {
			logging.FromContext(ctx).Warn("failed to remove pending account", slog.String("pending_id", pending.ID), slog.Any("error", delErr))
		}
		discardMedia(ctx, s.media, uploaded...)
		return apperr.Internal("failed to send verification email", err)
	}
	return nil
}

func (s *AccountService) stagePending(ctx context.Context, in RegisterInput, avatar, cover models.Asset) (models.PendingAccount, string, error) {
	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.PendingAccount{}, "", apperr.Internal("failed to hash password", err)
	}
	token, err := auth.RandomToken()
	if err != nil {
		return models.PendingAccount{}, "", apperr.Internal("failed to generate verification token", err)
	}

	replaced, err := s.stores.PendingAccounts.DeleteByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return models.PendingAccount{}, "", apperr.Internal("failed to replace pending registration", err)
	}
	for _, old := range replaced {
		discardMedia(ctx, s.media, old.Avatar.Key, old.CoverImage.Key)
	}

	now := s.now().UTC()
	pending := models.PendingAccount{
		ID:                    uuid.NewString(),
		Username:              in.Username,
		Email:                 in.Email,
		FullName:              in.FullName,
		PasswordHash:          passwordHash,
		Avatar:                avatar,
		CoverImage:            cover,
		VerificationTokenHash: auth.HashToken(token),
		ExpiresAt:             now.Add(verificationTTL),
		CreatedAt:             now,
	}
	if err := s.stores.PendingAccounts.Create(ctx, pending); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.PendingAccount{}, "", apperr.Conflict("a registration for this email or username is already in progress")
		}
		return models.PendingAccount{}, "", apperr.Internal("failed to save registration", err)
	}
	return pending, token, nil
}

// VerifyEmail promotes the pending account holding token to a verified account.
// The insert and the pending delete commit together.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (models.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Account{}, apperr.Validation("verification token is required")
	}
	hash := auth.HashToken(token)

	var account models.Account
	err := s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		now := s.now().UTC()
		pending, err := st.PendingAccounts.FindByTokenHash(ctx, hash, now)
		if err != nil {
			if isNotFound(err) {
				return apperr.Validation("invalid or expired verification token")
			}
			return fmt.Errorf("find pending account: %w", err)
		}

		account = models.Account{
			ID:           uuid.NewString(),
			Username:     pending.Username,
			Email:        pending.Email,
			FullName:     pending.FullName,
			PasswordHash: pending.PasswordHash,
			Avatar:       pending.Avatar,
			CoverImage:   pending.CoverImage,
			IsVerified:   true,
			WatchHistory: []string{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.Accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return apperr.Conflict("user with email or username already exists")
			}
			return fmt.Errorf("create account: %w", err)
		}
		if err := st.PendingAccounts.Delete(ctx, pending.ID); err != nil {
			return fmt.Errorf("delete pending account: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Account{}, asAppError(err, "failed to verify email")
	}
	return account, nil
}

// Login authenticates by username or email and issues a session.
func (s *AccountService) Login(ctx context.Context, login, password string) (models.Account, models.SessionTokens, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return models.Account{}, models.SessionTokens{}, apperr.Validation("username or email is required")
	}
	if password == "" {
		return models.Account{}, models.SessionTokens{}, apperr.Validation("password is required")
	}

	account, err := s.stores.Accounts.FindByLogin(ctx, login)
	if err != nil {
		if !isNotFound(err) {
			return models.Account{}, models.SessionTokens{}, apperr.Internal("failed to look up user", err)
		}
		pending, pendErr := s.stores.PendingAccounts.ExistsByLogin(ctx, login, s.now().UTC())
		if pendErr != nil {
			return models.Account{}, models.SessionTokens{}, apperr.Internal("failed to look up user", pendErr)
		}
		if pending {
			return models.Account{}, models.SessionTokens{}, apperr.Forbidden("please verify your email before logging in")
		}
		return models.Account{}, models.SessionTokens{}, apperr.NotFound("user does not exist")
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return models.Account{}, models.SessionTokens{}, apperr.Unauthorized("invalid user credentials")
		}
		return models.Account{}, models.SessionTokens{}, apperr.Internal("failed to verify password", err)
	}

	tokens, err := s.sessions.Issue(ctx, account.ID)
	if err != nil {
		return models.Account{}, models.SessionTokens{}, apperr.Internal("failed to issue session", err)
	}
	return account, tokens, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) {
	s.sessions.Revoke(ctx, refreshToken)
}

// Refresh rotates a refresh token into a new session.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, apperr.Unauthorized("unauthorized request")
	}
	tokens, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrRefreshTokenExpired) {
			return models.SessionTokens{}, apperr.Unauthorized("refresh token is expired or used")
		}
		return models.SessionTokens{}, apperr.Internal("failed to refresh session", err)
	}
	return tokens, nil
}

// CurrentUser returns the authenticated account.
func (s *AccountService) CurrentUser(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.stores.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return models.Account{}, lookupError(err, "user not found")
	}
	return account, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	account, err := s.stores.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return lookupError(err, "user not found")
	}
	if err := auth.ComparePassword(account.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperr.Validation("invalid old password")
		}
		return apperr.Internal("failed to verify password", err)
	}
	return s.setPassword(ctx, account.ID, newPassword)
}

func (s *AccountService) setPassword(ctx context.Context, accountID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	if err := s.stores.Accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return lookupError(err, "user not found")
	}
	return nil
}

// UpdateAccount changes the full name and email. Empty values keep the current ones.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID, fullName, email string) (models.Account, error) {
	fullName, email = strings.TrimSpace(fullName), normalizeEmail(email)
	if fullName == "" && email == "" {
		return models.Account{}, apperr.Validation("full name or email is required")
	}
	if email != "" && !validEmail(email) {
		return models.Account{}, apperr.Validation("invalid email address")
	}

	account, err := s.stores.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return models.Account{}, lookupError(err, "user not found")
	}
	if fullName != "" {
		account.FullName = fullName
	}
	if email != "" {
		account.Email = email
	}

	if err := s.stores.Accounts.UpdateProfile(ctx, account.ID, account.FullName, account.Email); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.Account{}, apperr.Conflict("email is already in use")
		}
		return models.Account{}, lookupError(err, "user not found")
	}
	account.UpdatedAt = s.now().UTC()
	return account, nil
}

// UpdateAvatar replaces the avatar and then removes the previous object.
func (s *AccountService) UpdateAvatar(ctx context.Context, accountID, path string) (models.Account, error) {
	return s.replaceImage(ctx, accountID, path, "avatar", func(a *models.Account) *models.Asset { return &a.Avatar }, s.stores.Accounts.UpdateAvatar)
}

// UpdateCoverImage replaces the cover image and then removes the previous object.
func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID, path string) (models.Account, error) {
	return s.replaceImage(ctx, accountID, path, "cover image", func(a *models.Account) *models.Asset { return &a.CoverImage }, s.stores.Accounts.UpdateCoverImage)
}

func (s *AccountService) replaceImage(
	ctx context.Context,
	accountID, path, label string,
	field func(*models.Account) *models.Asset,
	persist func(ctx context.Context, id string, asset models.Asset) error,
) (models.Account, error) {
	if path == "" {
		return models.Account{}, apperr.Validation(label + " file is missing")
	}
	account, err := s.stores.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return models.Account{}, lookupError(err, "user not found")
	}

	upload, err := s.media.Upload(ctx, path, media.KindImage)
	if err != nil {
		return models.Account{}, apperr.Internal("failed to upload "+label, err)
	}
	if err := persist(ctx, account.ID, upload.Asset); err != nil {
		discardMedia(ctx, s.media, upload.Asset.Key)
		return models.Account{}, lookupError(err, "user not found")
	}

	current := field(&account)
	discardMedia(ctx, s.media, current.Key)
	*current = upload.Asset
	account.UpdatedAt = s.now().UTC()
	return account, nil
}

// ChannelProfile returns the public channel page for username as seen by viewerID.
func (s *AccountService) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apperr.Validation("username is missing")
	}
	profile, err := s.stores.Accounts.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return models.ChannelProfile{}, lookupError(err, "channel does not exist")
	}
	return profile, nil
}

// WatchHistory returns the account's watched videos, most recent first.
func (s *AccountService) WatchHistory(ctx context.Context, accountID string) ([]models.VideoSummary, error) {
	videos, err := s.stores.Accounts.WatchHistory(ctx, accountID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch watch history", err)
	}
	if videos == nil {
		videos = []models.VideoSummary{}
	}
	return videos, nil
}

// ForgotPassword mails a short-lived reset link. Unknown emails succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return apperr.Validation("invalid email address")
	}

	account, err := s.stores.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperr.Internal("failed to look up user", err)
	}

	token, err := auth.RandomToken()
	if err != nil {
		return apperr.Internal("failed to generate reset token", err)
	}
	if err := s.stores.Accounts.SetResetToken(ctx, account.ID, auth.HashToken(token), s.now().UTC().Add(passwordResetTTL)); err != nil {
		return apperr.Internal("failed to store reset token", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.resetBaseURL, token)
	if err := s.mailer.SendPasswordReset(ctx, account.Email, account.FullName, resetURL); err != nil {
		if clearErr := s.stores.Accounts.SetResetToken(ctx, account.ID, "", time.Time{}); clearErr != nil {
			logging.FromContext(ctx).Warn("failed to clear reset token", slog.String("account_id", account.ID), slog.Any("error", clearErr))
		}
		return apperr.Internal("failed to send password reset email", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token and signs out every session.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.Validation("reset token is required")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	account, err := s.stores.Accounts.FindByResetToken(ctx, auth.HashToken(token), s.now().UTC())
	if err != nil {
		if isNotFound(err) {
			return apperr.Validation("invalid or expired reset token")
		}
		return apperr.Internal("failed to look up reset token", err)
	}

	if err := s.setPassword(ctx, account.ID, newPassword); err != nil {
		return err
	}
	if err := s.stores.Sessions.DeleteByAccount(ctx, account.ID); err != nil {
		logging.FromContext(ctx).Warn("failed to revoke sessions after reset", slog.String("account_id", account.ID), slog.Any("error", err))
	}
	return nil
}

func validateRegistration(in RegisterInput) error {
	switch {
	case in.FullName == "" || in.Email == "" || in.Username == "" || in.Password == "":
		return apperr.Validation("all fields are required")
	case !validEmail(in.Email):
		return apperr.Validation("invalid email address")
	case !usernamePattern.MatchString(in.Username):
		return apperr.Validation("username must be 3-30 characters of lowercase letters, digits, '_' or '.'")
	case len(in.Password) < minPasswordLength:
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// asAppError passes classified errors through and wraps anything else as internal.
func asAppError(err error, message string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Internal(message, err)
}
