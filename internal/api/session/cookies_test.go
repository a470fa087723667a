package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range (&http.Response{Header: rec.Header()}).Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestManager_SetAuthCookies(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	NewManager(Options{Domain: "example.com", Secure: true}).SetAuthCookies(c, "acc", "ref")

	cookies := responseCookies(rec)
	access, refresh := cookies[AccessTokenCookie], cookies[RefreshTokenCookie]
	if access == nil || refresh == nil {
		t.Fatalf("expected both cookies, got %v", cookies)
	}
	if access.Value != "acc" || access.MaxAge != 3600 {
		t.Fatalf("unexpected access cookie: %+v", access)
	}
	if refresh.Value != "ref" || refresh.MaxAge != 365*24*3600 {
		t.Fatalf("unexpected refresh cookie: %+v", refresh)
	}
	for _, ck := range []*http.Cookie{access, refresh} {
		if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteStrictMode || ck.Domain != "example.com" {
			t.Fatalf("cookie %s missing attributes: %+v", ck.Name, ck)
		}
	}
}

func TestManager_ClearAuthCookies(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	NewManager(Options{Domain: "localhost"}).ClearAuthCookies(c)

	cookies := responseCookies(rec)
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := cookies[name]
		if ck == nil {
			t.Fatalf("expected %s to be cleared", name)
		}
		if ck.Value != "" || ck.MaxAge >= 0 {
			t.Fatalf("cookie %s not expired: %+v", name, ck)
		}
		if ck.Secure {
			t.Fatalf("cookie %s should not be secure in development", name)
		}
	}
}
