package web

import (
	"errors"
	"net/http"
	"time"

	"paper-trading-go/internal/auth"
	"paper-trading-go/internal/session"
	"paper-trading-go/internal/trading"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// Handler holds the dependencies for all HTTP endpoints. Mutating
// endpoints accept form-encoded POST bodies; responses are JSON carrying
// the data the corresponding page renders.
type Handler struct {
	logger     *zap.Logger
	auth       *auth.Service
	trading    *trading.Service
	sessions   session.Store
	cookieName string
	sessionTTL time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(logger *zap.Logger, authSvc *auth.Service, tradingSvc *trading.Service, sessions session.Store, cookieName string, sessionTTL time.Duration) *Handler {
	return &Handler{
		logger:     logger,
		auth:       authSvc,
		trading:    tradingSvc,
		sessions:   sessions,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
	}
}

// RequireAuth resolves the session cookie to a user id. Requests without
// a valid session are redirected to the login page.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(h.cookieName)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		userID, ok, err := h.sessions.Get(c.Request.Context(), token)
		if err != nil {
			h.logger.Error("Session store lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}
		if !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// establishSession binds a fresh session to the user and sets the cookie.
func (h *Handler) establishSession(c *gin.Context, userID uint) error {
	token, err := h.sessions.Create(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookieName, token, int(h.sessionTTL.Seconds()), "/", "", false, true)
	return nil
}

// Register creates an account and logs it straight in, like the
// registration form did.
func (h *Handler) Register(c *gin.Context) {
	user, err := h.auth.Register(
		c.Request.Context(),
		c.PostForm("username"),
		c.PostForm("password"),
		c.PostForm("confirmation"),
	)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.establishSession(c, user.ID); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": user.Username, "cash": user.Cash})
}

// LoginPrompt is the target of unauthenticated redirects.
func (h *Handler) LoginPrompt(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "log in by POSTing username and password to /login"})
}

// Login verifies credentials and binds the session.
func (h *Handler) Login(c *gin.Context) {
	user, err := h.auth.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.establishSession(c, user.ID); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// Logout clears the session binding unconditionally.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookieName); err == nil {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			h.logger.Error("Failed to delete session", zap.Error(err))
		}
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

// Portfolio returns the authenticated user's holdings at live prices.
func (h *Handler) Portfolio(c *gin.Context) {
	portfolio, err := h.trading.GetPortfolio(c.Request.Context(), c.MustGet(userIDKey).(uint))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// History returns the user's transactions, oldest first.
func (h *Handler) History(c *gin.Context) {
	transactions, err := h.trading.GetHistory(c.Request.Context(), c.MustGet(userIDKey).(uint))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// Quote looks up a single symbol.
func (h *Handler) Quote(c *gin.Context) {
	q, err := h.trading.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": q.Name, "symbol": q.Symbol, "price": q.Price})
}

// Buy purchases shares at the current quote.
func (h *Handler) Buy(c *gin.Context) {
	record, err := h.trading.Buy(
		c.Request.Context(),
		c.MustGet(userIDKey).(uint),
		c.PostForm("symbol"),
		c.PostForm("shares"),
	)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bought!", "transaction": record})
}

// Sell sells shares at the current quote.
func (h *Handler) Sell(c *gin.Context) {
	record, err := h.trading.Sell(
		c.Request.Context(),
		c.MustGet(userIDKey).(uint),
		c.PostForm("symbol"),
		c.PostForm("shares"),
	)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sold!", "transaction": record})
}

// Deposit credits cash to the account.
func (h *Handler) Deposit(c *gin.Context) {
	if err := h.trading.Deposit(c.Request.Context(), c.MustGet(userIDKey).(uint), c.PostForm("amount")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deposit successful!"})
}

// Withdraw debits cash from the account.
func (h *Handler) Withdraw(c *gin.Context) {
	if err := h.trading.Withdraw(c.Request.Context(), c.MustGet(userIDKey).(uint), c.PostForm("amount")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful!"})
}

// ChangePassword re-hashes the password after verifying the current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	err := h.auth.ChangePassword(
		c.Request.Context(),
		c.MustGet(userIDKey).(uint),
		c.PostForm("current"),
		c.PostForm("new"),
		c.PostForm("confirmation"),
	)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully!"})
}

// renderError maps business-rule failures to user-visible responses.
// Bad input gets 400, credential problems get 403, and anything else is
// an infrastructure fault: logged in full, surfaced as a generic 500.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trading.ErrInvalidShareCount),
		errors.Is(err, trading.ErrNonPositiveShareCount),
		errors.Is(err, trading.ErrUnknownSymbol),
		errors.Is(err, trading.ErrInsufficientFunds),
		errors.Is(err, trading.ErrOverSell),
		errors.Is(err, trading.ErrInvalidAmount),
		errors.Is(err, auth.ErrMissingField),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}
