package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/event"
	"github.com/Andres4532/solhana-storefront/internal/repository"
	"github.com/Andres4532/solhana-storefront/internal/service"
	"github.com/Andres4532/solhana-storefront/internal/session"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
	pkgkafka "github.com/Andres4532/solhana-storefront/pkg/kafka"
)

// --- Mock repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) ListByOwner(ctx context.Context, owner domain.CartOwner) ([]domain.CartItem, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CartItem), args.Error(1)
}

func (m *mockCartRepository) FindLine(ctx context.Context, owner domain.CartOwner, productID string, variantID *string) (*domain.CartLine, error) {
	args := m.Called(ctx, owner, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLine), args.Error(1)
}

func (m *mockCartRepository) InsertLine(ctx context.Context, line *domain.CartLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	args := m.Called(ctx, lineID, quantity)
	return args.Error(0)
}

func (m *mockCartRepository) DeleteLine(ctx context.Context, lineID string) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

func (m *mockCartRepository) DeleteAllForOwner(ctx context.Context, owner domain.CartOwner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *mockCartRepository) DeleteAllForSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockCartRepository) ReassignSession(ctx context.Context, sessionID, customerID string) (int, error) {
	args := m.Called(ctx, sessionID, customerID)
	return args.Int(0), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetail), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductVariant), args.Error(1)
}

// --- Test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:1"})
	cfg.MaxAttempts = 1
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

type testEnv struct {
	router   http.Handler
	carts    *mockCartRepository
	products *mockProductRepository
	sessions *session.Manager
}

// setupRouter mirrors the production route layout, session middleware
// included, so cookie behavior is exercised end-to-end.
func setupRouter(t *testing.T) *testEnv {
	t.Helper()

	carts := &mockCartRepository{}
	products := &mockProductRepository{}
	logger := testLogger()
	sessions := session.NewManager(carts, logger, 24*time.Hour)
	cartService := service.NewCartService(carts, products, testEventProducer(), logger, true)

	cartHandler := NewCartHandler(cartService, sessions, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SessionCookies(sessions))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/claim", cartHandler.ClaimCart)
			r.Post("/lines", cartHandler.AddItem)
			r.Put("/lines/{lineID}", cartHandler.UpdateLine)
			r.Delete("/lines/{lineID}", cartHandler.RemoveLine)
		})
		r.Post("/products/{productID}/availability", cartHandler.Availability)
		r.Post("/session/signout", cartHandler.SignOut)
	})

	return &testEnv{router: r, carts: carts, products: products, sessions: sessions}
}

func withSessionCookies(req *http.Request, token string, createdAt time.Time) {
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: SessionTSCookieName, Value: strconv.FormatInt(createdAt.UnixMilli(), 10)})
}

func strPtr(s string) *string { return &s }

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

// --- Session cookie behavior ---

func TestGetCart_MintsSessionForNewVisitor(t *testing.T) {
	env := setupRouter(t)

	env.carts.On("ListByOwner", mock.Anything, mock.MatchedBy(func(o domain.CartOwner) bool {
		return o.SessionID != nil && strings.HasPrefix(*o.SessionID, "session_")
	})).Return([]domain.CartItem{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie, "new visitor gets a session cookie")
	assert.True(t, strings.HasPrefix(cookie.Value, "session_"))
	assert.True(t, cookie.HttpOnly)
}

func TestGetCart_ValidSessionKeepsToken(t *testing.T) {
	env := setupRouter(t)

	token := "session_1700000000000_abc123xyz"
	env.carts.On("ListByOwner", mock.Anything, domain.SessionOwner(token)).Return([]domain.CartItem{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	withSessionCookies(req, token, time.Now().Add(-1*time.Hour))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookieFrom(t, rec), "valid token is not reissued")
}

func TestGetCart_ExpiredSessionRotatesAndPurges(t *testing.T) {
	env := setupRouter(t)

	stale := "session_1600000000000_oldoldold"
	env.carts.On("DeleteAllForSession", mock.Anything, stale).Return(nil)
	env.carts.On("ListByOwner", mock.Anything, mock.MatchedBy(func(o domain.CartOwner) bool {
		return o.SessionID != nil && *o.SessionID != stale
	})).Return([]domain.CartItem{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	withSessionCookies(req, stale, time.Now().Add(-25*time.Hour))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "expiry is invisible to the shopper")
	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie)
	assert.NotEqual(t, stale, cookie.Value)

	env.sessions.Wait()
	env.carts.AssertCalled(t, "DeleteAllForSession", mock.Anything, stale)
}

func TestGetCart_CustomerHeaderWinsOverSession(t *testing.T) {
	env := setupRouter(t)

	env.carts.On("ListByOwner", mock.Anything, domain.CustomerOwner("cust-001")).Return([]domain.CartItem{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(CustomerIDHeader, "cust-001")
	withSessionCookies(req, "session_1700000000000_abc123xyz", time.Now())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env.carts.AssertExpectations(t)
}

// --- AddItem ---

func TestAddItem_Success(t *testing.T) {
	env := setupRouter(t)

	product := &domain.Product{ID: "prod-002", Name: "Bolso Cuero", Price: 12000, Stock: 5, Status: domain.ProductStatusActive}
	env.products.On("GetByID", mock.Anything, "prod-002").Return(product, nil)
	env.products.On("ListVariants", mock.Anything, "prod-002").Return([]domain.ProductVariant{}, nil)
	env.carts.On("FindLine", mock.Anything, mock.Anything, "prod-002", (*string)(nil)).Return(nil, apperrors.ErrNotFound)
	env.carts.On("InsertLine", mock.Anything, mock.Anything).Return(nil)
	env.carts.On("ListByOwner", mock.Anything, mock.Anything).Return([]domain.CartItem{
		{CartLine: domain.CartLine{ID: "line-001", ProductID: "prod-002", Quantity: 1, UnitPrice: 12000}, ProductName: "Bolso Cuero", Subtotal: 12000},
	}, nil)

	body := bytes.NewBufferString(`{"product_id":"prod-002","quantity":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 1)
	assert.Equal(t, int64(12000), resp.Data.Items[0].Subtotal)
}

func TestAddItem_OutOfStockMapsTo409(t *testing.T) {
	env := setupRouter(t)

	product := &domain.Product{ID: "prod-002", Price: 12000, Stock: 1, Status: domain.ProductStatusActive}
	env.products.On("GetByID", mock.Anything, "prod-002").Return(product, nil)
	env.products.On("ListVariants", mock.Anything, "prod-002").Return([]domain.ProductVariant{}, nil)
	env.carts.On("FindLine", mock.Anything, mock.Anything, "prod-002", (*string)(nil)).Return(nil, apperrors.ErrNotFound)

	body := bytes.NewBufferString(`{"product_id":"prod-002","quantity":3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "OUT_OF_STOCK")
	assert.Contains(t, rec.Body.String(), "only 1 unit")
}

func TestAddItem_ValidationFailure(t *testing.T) {
	env := setupRouter(t)

	body := bytes.NewBufferString(`{"quantity":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestAddItem_WrongContentType(t *testing.T) {
	env := setupRouter(t)

	body := bytes.NewBufferString(`product_id=prod-002`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// --- Availability ---

func TestAvailability_NarrowsOnColorChange(t *testing.T) {
	env := setupRouter(t)

	rojo, negro, m, l := "Rojo", "Negro", "M", "L"
	product := &domain.Product{ID: "prod-001", Price: 5000, HasVariants: true, Status: domain.ProductStatusActive}
	variants := []domain.ProductVariant{
		{ID: "var-rojo-m", ProductID: "prod-001", Facets: domain.Facets{Color: &rojo, Size: &m}, Stock: 4, Active: true},
		{ID: "var-negro-l", ProductID: "prod-001", Facets: domain.Facets{Color: &negro, Size: &l}, Stock: 2, Active: true},
	}
	env.products.On("GetByID", mock.Anything, "prod-001").Return(product, nil)
	env.products.On("ListVariants", mock.Anything, "prod-001").Return(variants, nil)
	env.carts.On("ListByOwner", mock.Anything, mock.Anything).Return([]domain.CartItem{}, nil)

	body := bytes.NewBufferString(`{"color":"Rojo","size":"M","changed":"color","value":"Negro"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/prod-001/availability", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data service.Availability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Selection.Size)
	assert.Equal(t, "L", *resp.Data.Selection.Size, "size snaps to what the new color has in stock")
	assert.Equal(t, 2, resp.Data.AvailableToAdd)
}

// --- Claim ---

func TestClaimCart_RequiresAuthentication(t *testing.T) {
	env := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/claim", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimCart_MergesAndExpiresCookies(t *testing.T) {
	env := setupRouter(t)

	token := "session_1700000000000_abc123xyz"
	env.carts.On("ReassignSession", mock.Anything, token, "cust-001").Return(1, nil)
	env.carts.On("ListByOwner", mock.Anything, domain.CustomerOwner("cust-001")).Return([]domain.CartItem{
		{CartLine: domain.CartLine{ID: "line-001", Quantity: 1}},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/claim", nil)
	req.Header.Set(CustomerIDHeader, "cust-001")
	withSessionCookies(req, token, time.Now())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			assert.Less(t, c.MaxAge, 0, "claimed session cookie is expired")
		}
	}
	env.carts.AssertExpectations(t)
}

// --- SignOut ---

func TestSignOut_PurgesAndDropsCookies(t *testing.T) {
	env := setupRouter(t)

	token := "session_1700000000000_abc123xyz"
	env.carts.On("DeleteAllForSession", mock.Anything, token).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/signout", nil)
	withSessionCookies(req, token, time.Now())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var sawExpiry bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			sawExpiry = true
		}
	}
	assert.True(t, sawExpiry, "session cookie is dropped on sign-out")

	env.sessions.Wait()
	env.carts.AssertCalled(t, "DeleteAllForSession", mock.Anything, token)
}

// --- UpdateLine / RemoveLine ---

func TestUpdateLine_NotFoundMapsTo404(t *testing.T) {
	env := setupRouter(t)

	env.carts.On("ListByOwner", mock.Anything, mock.Anything).Return([]domain.CartItem{}, nil)

	body := bytes.NewBufferString(`{"quantity":2}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/lines/line-missing", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRemoveLine_Success(t *testing.T) {
	env := setupRouter(t)

	items := []domain.CartItem{{CartLine: domain.CartLine{ID: "line-001", ProductID: "prod-001", Quantity: 1}}}
	env.carts.On("ListByOwner", mock.Anything, mock.Anything).Return(items, nil).Once()
	env.carts.On("DeleteLine", mock.Anything, "line-001").Return(nil)
	env.carts.On("ListByOwner", mock.Anything, mock.Anything).Return([]domain.CartItem{}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/lines/line-001", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data.Items)
}
