package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tastesync/pkg/ctxkeys"
)

func TestClerkAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keys := newTestKeys(t)
	v, err := NewClerkVerifier(ClerkConfig{PublicKeyPEM: keys.pem})
	if err != nil {
		t.Fatalf("NewClerkVerifier: %v", err)
	}

	r := gin.New()
	r.Use(ClerkAuthMiddleware(v))
	r.GET("/ok", func(c *gin.Context) {
		if c.GetString(string(ctxkeys.KeyUserID)) != "user_42" {
			c.String(http.StatusInternalServerError, "gin user not set")
			return
		}
		if ctxkeys.GetUserID(c.Request.Context()) != "user_42" {
			c.String(http.StatusInternalServerError, "request user not set")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	token := keys.sign(t, sessionClaims("user_42", time.Minute))

	// Missing header
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ok", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	// Malformed header
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", w.Code)
	}

	// Valid bearer
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Session cookie
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, "/ok", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: token})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", w.Code)
	}
}

func TestClerkAuthMiddlewareExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keys := newTestKeys(t)
	v, err := NewClerkVerifier(ClerkConfig{PublicKeyPEM: keys.pem})
	if err != nil {
		t.Fatalf("NewClerkVerifier: %v", err)
	}

	r := gin.New()
	r.Use(ClerkAuthMiddleware(v))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Bearer "+keys.sign(t, sessionClaims("u", -time.Minute)))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"error":"JWT token expired","success":false}` {
		t.Fatalf("unexpected body %s", body)
	}
}
