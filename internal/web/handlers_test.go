package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"paper-trading-go/internal/auth"
	"paper-trading-go/internal/models"
	"paper-trading-go/internal/quote"
	"paper-trading-go/internal/session"
	"paper-trading-go/internal/trading"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockQuoteClient is a mock implementation of quote.ClientInterface.
type MockQuoteClient struct {
	mock.Mock
}

func (m *MockQuoteClient) Lookup(_ context.Context, symbol string) (*quote.Quote, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quote.Quote), args.Error(1)
}

// setupRouter builds the full router over real services, an in-memory
// database and the mock quote client.
func setupRouter(t *testing.T) (*gin.Engine, *MockQuoteClient) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Position{}, &models.Transaction{}))

	mockClient := new(MockQuoteClient)
	log := zap.NewNop()
	authSvc := auth.NewService(db, log, decimal.NewFromInt(10000))
	tradingSvc := trading.NewService(db, mockClient, log)
	sessions := session.NewMemoryStore(time.Hour)

	h := NewHandler(log, authSvc, tradingSvc, sessions, "session_id", time.Hour)
	return NewRouter(h), mockClient
}

func postForm(router *gin.Engine, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// register creates an account and returns its session cookie.
func register(t *testing.T, router *gin.Engine, username string) *http.Cookie {
	w := postForm(router, "/register", url.Values{
		"username":     {username},
		"password":     {"hunter2"},
		"confirmation": {"hunter2"},
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	return sessionCookie(t, w)
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	router, _ := setupRouter(t)

	for _, path := range []string{"/", "/history"} {
		w := get(router, path, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}

	w := postForm(router, "/buy", url.Values{"symbol": {"NFLX"}, "shares": {"1"}}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	// A made-up token is as good as none.
	w = get(router, "/", &http.Cookie{Name: "session_id", Value: "bogus"})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestRegisterEstablishesSession(t *testing.T) {
	router, _ := setupRouter(t)

	cookie := register(t, router, "alice")

	w := get(router, "/", cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	var portfolio trading.Portfolio
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &portfolio))
	assert.True(t, portfolio.Cash.Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, portfolio.Holdings)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := postForm(router, "/register", url.Values{"username": {"alice"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(router, "/register", url.Values{
		"username":     {"alice"},
		"password":     {"a"},
		"confirmation": {"b"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	register(t, router, "alice")
	w = postForm(router, "/register", url.Values{
		"username":     {"alice"},
		"password":     {"x"},
		"confirmation": {"x"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "taken")
}

func TestLoginAndLogout(t *testing.T) {
	router, _ := setupRouter(t)
	register(t, router, "alice")

	w := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"hunter2"}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	w = get(router, "/logout", cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	// The old token no longer authenticates.
	w = get(router, "/", cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestBuySellFlow(t *testing.T) {
	router, mockClient := setupRouter(t)
	cookie := register(t, router, "alice")

	mockClient.On("Lookup", "NFLX").Return(&quote.Quote{
		Name:   "Netflix Inc",
		Symbol: "NFLX",
		Price:  decimal.NewFromInt(150),
	}, nil)

	w := postForm(router, "/buy", url.Values{"symbol": {"nflx"}, "shares": {"10"}}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bought!")

	w = get(router, "/", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var portfolio trading.Portfolio
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &portfolio))
	assert.True(t, portfolio.Cash.Equal(decimal.NewFromInt(8500)))
	assert.Len(t, portfolio.Holdings, 1)
	assert.Equal(t, int64(10), portfolio.Holdings[0].Shares)
	assert.True(t, portfolio.GrandTotal.Equal(decimal.NewFromInt(10000)))

	w = postForm(router, "/sell", url.Values{"symbol": {"NFLX"}, "shares": {"10"}}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sold!")

	w = get(router, "/history", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Transactions, 2)
	assert.Equal(t, int64(10), history.Transactions[0].Shares)
	assert.Equal(t, int64(-10), history.Transactions[1].Shares)
}

func TestErrorStatusMapping(t *testing.T) {
	router, mockClient := setupRouter(t)
	cookie := register(t, router, "alice")

	mockClient.On("Lookup", "NOPE").Return(nil, quote.ErrNotFound)
	mockClient.On("Lookup", "NFLX").Return(&quote.Quote{
		Name: "Netflix Inc", Symbol: "NFLX", Price: decimal.NewFromInt(150),
	}, nil)

	cases := []struct {
		name string
		w    *httptest.ResponseRecorder
		code int
	}{
		{"bad share count", postForm(router, "/buy", url.Values{"symbol": {"NFLX"}, "shares": {"abc"}}, cookie), http.StatusBadRequest},
		{"unknown symbol", postForm(router, "/buy", url.Values{"symbol": {"NOPE"}, "shares": {"1"}}, cookie), http.StatusBadRequest},
		{"oversell", postForm(router, "/sell", url.Values{"symbol": {"NFLX"}, "shares": {"1"}}, cookie), http.StatusBadRequest},
		{"bad amount", postForm(router, "/deposit", url.Values{"amount": {"-5"}}, cookie), http.StatusBadRequest},
		{"overdraw", postForm(router, "/withdraw", url.Values{"amount": {"999999"}}, cookie), http.StatusBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.w.Code, tc.name)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	router, mockClient := setupRouter(t)
	cookie := register(t, router, "alice")

	mockClient.On("Lookup", "NFLX").Return(&quote.Quote{
		Name: "Netflix Inc", Symbol: "NFLX", Price: decimal.NewFromFloat(150.25),
	}, nil)
	mockClient.On("Lookup", "NOPE").Return(nil, quote.ErrNotFound)

	w := get(router, "/quote/nflx", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Netflix Inc")

	w = get(router, "/quote/NOPE", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositAndWithdraw(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := register(t, router, "alice")

	w := postForm(router, "/deposit", url.Values{"amount": {"500"}}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(router, "/withdraw", url.Values{"amount": {"300"}}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/", cookie)
	var portfolio trading.Portfolio
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &portfolio))
	assert.True(t, portfolio.Cash.Equal(decimal.NewFromInt(10200)))
}

func TestChangePasswordEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	cookie := register(t, router, "alice")

	w := postForm(router, "/password", url.Values{
		"current":      {"wrong"},
		"new":          {"next"},
		"confirmation": {"next"},
	}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postForm(router, "/password", url.Values{
		"current":      {"hunter2"},
		"new":          {"next"},
		"confirmation": {"next"},
	}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"next"}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
