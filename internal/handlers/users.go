package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/services"
)

// UserHandler implements the /users endpoints.
type UserHandler struct {
	Accounts       AccountService
	Cascade        CascadeDeleter
	MaxUploadBytes int64
	SecureCookies  bool
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type loginResponse struct {
	User models.Account `json:"user"`
	models.SessionTokens
}

// Register handles POST /users/register. The body is multipart with optional
// avatar and coverImage files.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	upload, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer upload.Cleanup()

	in := services.RegisterInput{
		FullName: upload.Value("fullName"),
		Email:    upload.Value("email"),
		Username: upload.Value("username"),
		Password: upload.r.FormValue("password"),
	}
	if in.FullName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		respondError(w, r, apperr.Validation("all fields are required"))
		return
	}
	if in.AvatarPath, err = upload.SaveFile("avatar", false); err != nil {
		respondError(w, r, err)
		return
	}
	if in.CoverPath, err = upload.SaveFile("coverImage", false); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Accounts.Register(r.Context(), in); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, map[string]string{"email": strings.ToLower(in.Email)},
		"registration received, check your email to verify your account")
}

// VerifyEmail handles POST /users/verify-email.
func (h UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.Accounts.VerifyEmail(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, account, "email verified successfully")
}

// Login handles POST /users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}

	account, tokens, err := h.Accounts.Login(r.Context(), login, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.setSessionCookies(w, tokens)
	respond(w, r, http.StatusOK, loginResponse{User: account, SessionTokens: tokens}, "user logged in successfully")
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if token != "" {
		h.Accounts.Logout(r.Context(), token)
	}
	h.clearSessionCookies(w)
	respond(w, r, http.StatusOK, map[string]any{}, "user logged out")
}

// RefreshToken handles POST /users/refresh-token.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if token == "" {
		respondError(w, r, apperr.Unauthorized("unauthorized request"))
		return
	}

	tokens, err := h.Accounts.Refresh(r.Context(), token)
	if err != nil {
		h.clearSessionCookies(w)
		respondError(w, r, err)
		return
	}
	h.setSessionCookies(w, tokens)
	respond(w, r, http.StatusOK, tokens, "access token refreshed")
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Accounts.ChangePassword(r.Context(), middleware.AccountID(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "password changed successfully")
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.Accounts.CurrentUser(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, account, "current user fetched successfully")
}

// UpdateAccount handles PATCH /users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	fullName := cleanText(req.FullName)
	if fullName == "" && strings.TrimSpace(req.Email) == "" {
		respondError(w, r, apperr.Validation("fullName or email is required"))
		return
	}
	account, err := h.Accounts.UpdateAccount(r.Context(), middleware.AccountID(r.Context()), fullName, req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, account, "account details updated successfully")
}

// UpdateAvatar handles PATCH /users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage handles PATCH /users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCoverImage, "cover image updated successfully")
}

func (h UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, accountID, path string) (models.Account, error),
	message string,
) {
	upload, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer upload.Cleanup()

	path, err := upload.SaveFile(field, true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	account, err := update(r.Context(), middleware.AccountID(r.Context()), path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, account, message)
}

// ChannelProfile handles GET /users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(pathParam(r, "username"))
	if username == "" {
		respondError(w, r, apperr.Validation("username is missing"))
		return
	}
	profile, err := h.Accounts.ChannelProfile(r.Context(), username, middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Accounts.WatchHistory(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if history == nil {
		history = []models.VideoSummary{}
	}
	respond(w, r, http.StatusOK, history, "watch history fetched successfully")
}

// ForgotPassword handles POST /users/forgot-password. The response does not
// reveal whether the address belongs to an account.
func (h UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{},
		"if an account exists for that email, password reset instructions have been sent")
}

// ResetPassword handles POST /users/reset-password/{token}.
func (h UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Accounts.ResetPassword(r.Context(), pathParam(r, "token"), req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{}, "password has been reset, please log in")
}

// DeleteAccount handles DELETE /users/delete-account.
func (h UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if err := h.Cascade.DeleteAccount(r.Context(), accountID); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("account deleted")
	h.clearSessionCookies(w)
	respond(w, r, http.StatusOK, map[string]any{}, "account deleted successfully")
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := h.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// refreshTokenFrom reads the refresh token from its cookie, falling back to a
// JSON body for clients that do not keep cookies.
func refreshTokenFrom(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return strings.TrimSpace(cookie.Value), nil
	}
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return "", nil
	}
	var req refreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.RefreshToken), nil
}
