package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/transport/http/middleware"
	"github.com/edujoy/auth-service/internal/usecase"
)

const (
	refreshCookieName = "refreshToken"
	dateOfBirthLayout = "2006-01-02"
)

// AuthHandler exposes the authentication and account endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	reset        *usecase.PasswordResetService
	profile      *usecase.ProfileService
	cookieDomain string
	isDev        bool
}

// AuthHandlerOption configures optional AuthHandler behavior.
type AuthHandlerOption func(*AuthHandler)

// WithCookieDomain scopes the refresh cookie to the given domain.
func WithCookieDomain(domain string) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.cookieDomain = domain
	}
}

// WithDevMode toggles development-only behavior: verbose internal errors and
// returning verification/reset tokens in responses.
func WithDevMode(isDev bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.isDev = isDev
	}
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	registration *usecase.RegistrationService,
	reset *usecase.PasswordResetService,
	profile *usecase.ProfileService,
	opts ...AuthHandlerOption,
) *AuthHandler {
	handler := &AuthHandler{
		auth:         auth,
		registration: registration,
		reset:        reset,
		profile:      profile,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RouteMiddlewares carries per-endpoint middleware chains, typically rate
// limiters.
type RouteMiddlewares struct {
	Login         []gin.HandlerFunc
	Register      []gin.HandlerFunc
	PasswordReset []gin.HandlerFunc
}

// RegisterRoutes binds the auth endpoints under the provided group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, mw RouteMiddlewares) {
	r.POST("/register", chain(mw.Register, h.register)...)
	r.POST("/login", chain(mw.Login, h.login)...)
	r.POST("/refresh-token", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.POST("/logout-all", middleware.RequireAuth(h.auth), h.logoutAll)
	r.POST("/verify-email", h.verifyEmail)
	r.POST("/forgot-password", chain(mw.PasswordReset, h.forgotPassword)...)
	r.POST("/reset-password", chain(mw.PasswordReset, h.resetPassword)...)
	r.GET("/profile", middleware.RequireAuth(h.auth), h.getProfile)
	r.POST("/register-child", middleware.RequireAuth(h.auth), middleware.RequireRole(domain.RoleParent), h.registerChild)
	r.GET("/children", middleware.RequireAuth(h.auth), middleware.RequireRole(domain.RoleParent), h.listChildren)
}

func chain(mws []gin.HandlerFunc, final gin.HandlerFunc) []gin.HandlerFunc {
	out := append([]gin.HandlerFunc{}, mws...)
	return append(out, final)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid registration payload", Code: "VALIDATION_ERROR"})
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
		Device:   deviceInfo(c),
	})
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken, result.CookieMaxAge)

	resp := RegisterResponse{
		User:        NewUserView(result.User),
		AccessToken: result.Tokens.AccessToken,
	}
	if h.isDev {
		resp.VerificationToken = result.VerificationToken
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid login payload", Code: "VALIDATION_ERROR"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		Device:     deviceInfo(c),
	})
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken, result.CookieMaxAge)

	resp := LoginResponse{
		User:        NewUserView(result.User),
		AccessToken: result.Tokens.AccessToken,
	}

	// Student accounts carry their profile in the login response so the
	// client can skip a follow-up fetch.
	if result.User.Role == domain.RoleStudent {
		if profile, err := h.profile.GetProfile(c.Request.Context(), result.User.ID); err == nil && profile.Student != nil {
			view := NewStudentView(*profile.Student)
			resp.Profile = &view
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing refresh token", Code: "INVALID_REFRESH_TOKEN"})
		return
	}

	accessToken, _, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func (h *AuthHandler) logout(c *gin.Context) {
	token := h.refreshTokenFromRequest(c)

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err, h.isDev)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "INVALID_TOKEN"})
		return
	}

	if _, err := h.auth.LogoutAll(c.Request.Context(), userID, deviceInfo(c)); err != nil {
		respondError(c, err, h.isDev)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "all sessions revoked"})
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid verification payload", Code: "VALIDATION_ERROR"})
		return
	}

	if err := h.registration.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondError(c, err, h.isDev)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

func (h *AuthHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payload", Code: "VALIDATION_ERROR"})
		return
	}

	resetToken, err := h.reset.RequestReset(c.Request.Context(), req.Email, deviceInfo(c))
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	// The response is identical whether or not the account exists.
	resp := ForgotPasswordResponse{
		Message: "if the email is registered, a reset link has been sent",
	}
	if h.isDev {
		resp.ResetToken = resetToken
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payload", Code: "VALIDATION_ERROR"})
		return
	}

	if err := h.reset.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err, h.isDev)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "password updated, please log in again"})
}

func (h *AuthHandler) getProfile(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "INVALID_TOKEN"})
		return
	}

	profile, err := h.profile.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	resp := ProfileResponse{User: NewUserView(profile.User)}
	if profile.Student != nil {
		view := NewStudentView(*profile.Student)
		resp.Profile = &view
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) registerChild(c *gin.Context) {
	parentID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "INVALID_TOKEN"})
		return
	}

	var req RegisterChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid child registration payload", Code: "VALIDATION_ERROR"})
		return
	}

	// A parent may only create children under their own account.
	if req.ParentID != "" && req.ParentID != parentID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot register a child for another parent", Code: "FORBIDDEN"})
		return
	}

	dateOfBirth, err := time.Parse(dateOfBirthLayout, req.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "dateOfBirth must be formatted YYYY-MM-DD", Code: "VALIDATION_ERROR"})
		return
	}

	result, err := h.registration.RegisterChild(c.Request.Context(), usecase.RegisterChildInput{
		ParentID:    parentID,
		StudentName: req.StudentName,
		Grade:       req.Grade,
		Gender:      req.Gender,
		DateOfBirth: dateOfBirth,
	})
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	c.JSON(http.StatusCreated, RegisterChildResponse{
		Student:   NewStudentView(result.Student),
		ChildUser: NewUserView(result.ChildUser),
	})
}

func (h *AuthHandler) listChildren(c *gin.Context) {
	parentID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "INVALID_TOKEN"})
		return
	}

	children, err := h.profile.ListChildren(c.Request.Context(), parentID)
	if err != nil {
		respondError(c, err, h.isDev)
		return
	}

	resp := ChildrenResponse{Children: make([]ChildSummary, 0, len(children))}
	for _, child := range children {
		resp.Children = append(resp.Children, ChildSummary{
			Student: NewStudentView(child.Student),
			User:    NewUserView(child.User),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// refreshTokenFromRequest prefers the body token and falls back to the
// cookie.
func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) string {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
		return strings.TrimSpace(req.RefreshToken)
	}

	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(maxAge.Seconds()), "/", h.cookieDomain, !h.isDev, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", h.cookieDomain, !h.isDev, true)
}

func deviceInfo(c *gin.Context) usecase.DeviceInfo {
	info := usecase.DeviceInfo{}
	if ua := c.Request.UserAgent(); ua != "" {
		info.UserAgent = &ua
	}
	if ip := c.ClientIP(); ip != "" {
		info.IP = &ip
	}
	return info
}
