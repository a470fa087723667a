package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/api/session"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/core/token"
	"github.com/99minutos/auth-service/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/auth-service/internal/infrastructure/keys"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"
)

var (
	keyOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generating key: %v", err)
		}
		rsaKey = k
	})
	return rsaKey
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e, _ := newTestServerWithDB(t)
	return e
}

// newTestServerWithDB wires the real services and repositories over a temp-file SQLite database.
func newTestServerWithDB(t *testing.T) (*echo.Echo, *sqlstore.DB) {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	f, err := os.CreateTemp("", "auth-router-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(path) })

	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: sqlstore.SQLiteDSN(path)})
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	provider, err := keys.NewProviderFromKey(signingKey(t), "refresh-secret")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	users := sqlstore.NewUserRepository(db)
	tenants := sqlstore.NewTenantRepository(db)
	store := token.NewRefreshStore(sqlstore.NewRefreshTokenRepository(db), log)
	issuer := token.NewIssuer(provider, store, token.IssuerOptions{Logger: log})
	verifier := token.NewVerifier(provider.Keyfunc, provider.RefreshSecret())
	creds := service.NewBcryptVerifier(bcrypt.MinCost)

	userSvc := service.NewUserService(users, tenants, creds, log)
	if _, err := userSvc.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	return NewRouter(Deps{
		Logger:     log,
		Auth:       service.NewAuthService(users, store, issuer, creds, nil, log),
		Users:      userSvc,
		Tenants:    service.NewTenantService(tenants, log),
		Verifier:   verifier,
		Revocation: store,
		Cookies:    session.NewManager(session.Options{Domain: "localhost"}),
		Keys:       provider,
	}), db
}

type authSession struct {
	access  string
	refresh *http.Cookie
}

func call(e *echo.Echo, method, target, body string, s *authSession) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if s != nil {
		if s.access != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.access)
		}
		if s.refresh != nil {
			req.AddCookie(s.refresh)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionFrom(t *testing.T, rec *httptest.ResponseRecorder) *authSession {
	t.Helper()
	s := &authSession{}
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case session.AccessTokenCookie:
			s.access = c.Value
		case session.RefreshTokenCookie:
			s.refresh = c
		}
	}
	if s.access == "" || s.refresh == nil {
		t.Fatalf("session cookies missing: %v", rec.Header().Values("Set-Cookie"))
	}
	return s
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []errorItem {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error envelope %q: %v", rec.Body.String(), err)
	}
	if len(resp.Errors) == 0 {
		t.Fatalf("empty error envelope: %s", rec.Body.String())
	}
	return resp.Errors
}

func register(t *testing.T, e *echo.Echo, email string) *authSession {
	t.Helper()
	body := `{"firstName":"Ada","lastName":"Lovelace","email":"` + email + `","password":"secret1"}`
	rec := call(e, http.MethodPost, "/api/auth/register", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	return sessionFrom(t, rec)
}

func login(t *testing.T, e *echo.Echo, email, password string) *authSession {
	t.Helper()
	rec := call(e, http.MethodPost, "/api/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	return sessionFrom(t, rec)
}

func TestRouter_Welcome(t *testing.T) {
	e := newTestServer(t)
	rec := call(e, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "Welcome to Auth Service" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_RegisterAndWhoami(t *testing.T) {
	e := newTestServer(t)
	s := register(t, e, "Ada@Example.com")

	rec := call(e, http.MethodGet, "/api/auth/whoami", "", &authSession{access: s.access})
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var user map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if user["email"] != "ada@example.com" || user["role"] != "customer" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password must not be serialized")
	}
}

func TestRouter_RegisterDuplicate(t *testing.T) {
	e := newTestServer(t)
	register(t, e, "dup@example.com")

	body := `{"firstName":"A","lastName":"B","email":"DUP@example.com ","password":"secret1"}`
	rec := call(e, http.MethodPost, "/api/auth/register", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if errs := decodeErrors(t, rec); errs[0].Msg != "User already exists" {
		t.Fatalf("unexpected message %q", errs[0].Msg)
	}
}

func TestRouter_RegisterValidation(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodPost, "/api/auth/register", `{"firstName":"","lastName":"","email":"x","password":"1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errs := decodeErrors(t, rec)
	if len(errs) != 4 {
		t.Fatalf("expected one entry per field, got %+v", errs)
	}
	for _, item := range errs {
		if item.Type != "ValidationError" || item.Location != "body" {
			t.Fatalf("unexpected entry %+v", item)
		}
	}
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	e := newTestServer(t)
	register(t, e, "wrong@example.com")

	for _, body := range []string{
		`{"email":"wrong@example.com","password":"nope"}`,
		`{"email":"nobody@example.com","password":"secret1"}`,
	} {
		rec := call(e, http.MethodPost, "/api/auth/login", body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if errs := decodeErrors(t, rec); errs[0].Msg != "Email or Password does not match" {
			t.Fatalf("unexpected message %q", errs[0].Msg)
		}
	}
}

func TestRouter_WhoamiWithoutToken(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodGet, "/api/auth/whoami", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if errs := decodeErrors(t, rec); errs[0].Msg != "Unauthorized" {
		t.Fatalf("unexpected message %q", errs[0].Msg)
	}
}

func TestRouter_RefreshRotates(t *testing.T) {
	e := newTestServer(t)
	first := register(t, e, "rotate@example.com")

	rec := call(e, http.MethodPost, "/api/auth/refresh", "", &authSession{refresh: first.refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	second := sessionFrom(t, rec)
	if second.refresh.Value == first.refresh.Value {
		t.Fatal("refresh token was not rotated")
	}

	// the rotated-out token is revoked; the body matches any other auth failure
	rec = call(e, http.MethodPost, "/api/auth/refresh", "", &authSession{refresh: first.refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reuse: expected 401, got %d", rec.Code)
	}
	if errs := decodeErrors(t, rec); errs[0].Msg != "Unauthorized" {
		t.Fatalf("unexpected message %q", errs[0].Msg)
	}

	rec = call(e, http.MethodPost, "/api/auth/refresh", "", &authSession{refresh: second.refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("second refresh: expected 200, got %d", rec.Code)
	}
}

func TestRouter_Logout(t *testing.T) {
	e := newTestServer(t)
	s := register(t, e, "bye@example.com")

	rec := call(e, http.MethodPost, "/api/auth/logout", "", s)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("logout: unexpected response %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared", c.Name)
		}
	}

	rec = call(e, http.MethodPost, "/api/auth/logout", "", s)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second logout: expected 401, got %d", rec.Code)
	}

	rec = call(e, http.MethodPost, "/api/auth/refresh", "", &authSession{refresh: s.refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

func TestRouter_LogoutWithExpiredRefreshToken(t *testing.T) {
	e, db := newTestServerWithDB(t)
	s := register(t, e, "lapsed@example.com")

	past := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	if _, err := db.ExecContext(context.Background(), "UPDATE refresh_tokens SET expires_at = ?", past); err != nil {
		t.Fatalf("expiring record: %v", err)
	}

	rec := call(e, http.MethodPost, "/api/auth/refresh", "", &authSession{refresh: s.refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with expired record: expected 401, got %d", rec.Code)
	}

	rec = call(e, http.MethodPost, "/api/auth/logout", "", s)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM refresh_tokens").Scan(&n); err != nil {
		t.Fatalf("counting records: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected record removed, %d left", n)
	}
}

func TestRouter_AdminRoutes(t *testing.T) {
	e := newTestServer(t)
	customer := register(t, e, "customer@example.com")

	rec := call(e, http.MethodGet, "/api/tenants", "", &authSession{access: customer.access})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", rec.Code)
	}

	admin := login(t, e, adminEmail, adminPassword)
	auth := &authSession{access: admin.access}

	rec = call(e, http.MethodPost, "/api/tenants", `{"name":" Acme ","address":"Main St 1"}`, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant: expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodPost, "/api/users",
		`{"firstName":"M","lastName":"G","email":"m@example.com","password":"secret1","tenantId":1}`, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create manager: expected 201, got %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/api/users?role=manager", "", auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d", rec.Code)
	}
	var page struct {
		CurrentPage int              `json:"currentPage"`
		PerPage     int              `json:"perPage"`
		Total       int64            `json:"total"`
		Data        []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if page.CurrentPage != 1 || page.PerPage != 6 || page.Total != 1 || page.Data[0]["email"] != "m@example.com" {
		t.Fatalf("unexpected page: %+v", page)
	}

	rec = call(e, http.MethodGet, "/api/tenants/abc", "", auth)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
	if errs := decodeErrors(t, rec); errs[0].Msg != "Invalid url param." {
		t.Fatalf("unexpected message %q", errs[0].Msg)
	}

	rec = call(e, http.MethodGet, "/api/users/999", "", auth)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing user: expected 404, got %d", rec.Code)
	}
}

func TestRouter_JWKS(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var set struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			Use string `json:"use"`
			Alg string `json:"alg"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(set.Keys) != 1 || set.Keys[0].Kty != "RSA" || set.Keys[0].Use != "sig" || set.Keys[0].Kid == "" {
		t.Fatalf("unexpected key set: %s", rec.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	e := newTestServer(t)

	if rec := call(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := call(e, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", rec.Code)
	}
}

func TestErrorHandler_ProductionSanitizes(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop(), true)
	e.GET("/boom", func(echo.Context) error { return errors.New("dial tcp 10.0.0.1:3306: refused") })

	rec := call(e, http.MethodGet, "/boom", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	item := decodeErrors(t, rec)[0]
	if item.Msg != "Internal Server Error" || item.Stack != nil || item.Ref == "" {
		t.Fatalf("unexpected entry %+v", item)
	}
}

func TestErrorHandler_DevelopmentStack(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop(), false)
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })

	item := decodeErrors(t, call(e, http.MethodGet, "/boom", "", nil))[0]
	if item.Msg != "boom" || item.Stack == nil || !strings.Contains(*item.Stack, "boom") {
		t.Fatalf("unexpected entry %+v", item)
	}
	if item.Path != "/boom" || item.Method != http.MethodGet || item.Location != "server" {
		t.Fatalf("unexpected entry %+v", item)
	}
}

func TestErrorHandler_NotFoundRoute(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	decodeErrors(t, rec)
}

func TestRouter_ErrorLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	e := NewRouter(Deps{Logger: zerolog.New(&buf)})

	rec := call(e, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	id := rec.Header().Get(echo.HeaderXRequestID)
	if id == "" {
		t.Fatal("missing request id header")
	}

	found := false
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		if err := json.Unmarshal(raw, &line); err != nil {
			t.Fatalf("invalid log line %q: %v", raw, err)
		}
		if line["message"] == "request failed" {
			found = true
			if line["request_id"] != id {
				t.Fatalf("expected request_id %q, got %v", id, line)
			}
		}
	}
	if !found {
		t.Fatalf("no error line logged: %s", buf.String())
	}
}
