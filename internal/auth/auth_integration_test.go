package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/auth"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
)

var dbAvailable bool

var testServer *httptest.Server

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// No database: every test below skips itself.
		os.Exit(m.Run())
	}

	if err := db.Connect(databaseURL, zap.NewNop()); err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	if err := auth.Init(false); err != nil {
		fmt.Fprintln(os.Stderr, "auth init:", err)
		os.Exit(1)
	}
	dbAvailable = true

	r := chi.NewRouter()
	r.Mount("/auth", auth.SetupRoutes())
	testServer = httptest.NewServer(r)

	code := m.Run()
	testServer.Close()
	os.Exit(code)
}

// createTestUser stores a unique account and removes it when the test ends.
func createTestUser(t *testing.T, role string) (username, password string) {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	username = fmt.Sprintf("testuser_%s", uuid.New().String()[:8])
	password = "TestPass123!"
	user, err := auth.CreateUser(username, password, role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Cleanup(func() {
		db.DB.Where("user_id = ?", user.UserID).Delete(&auth.Session{})
		db.DB.Where("user_id = ?", user.UserID).Delete(&auth.User{})
	})
	return username, password
}

func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, path string, v any) *http.Response {
	t.Helper()
	body, _ := json.Marshal(v)
	resp, err := client.Post(testServer.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func login(t *testing.T, client *http.Client, username, password string) map[string]string {
	t.Helper()
	resp := postJSON(t, client, "/auth/login", map[string]string{"username": username, "password": password})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("invalid login JSON: %s", body)
	}
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestLoginAndMe(t *testing.T) {
	username, password := createTestUser(t, auth.RoleStaff)
	client := newClientWithJar(t)

	result := login(t, client, username, password)
	if result["username"] != username || result["role"] != auth.RoleStaff {
		t.Errorf("unexpected login body: %v", result)
	}

	resp, err := client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d; body: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, username) {
		t.Errorf("expected /auth/me to mention %q, got %s", username, body)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	username, _ := createTestUser(t, auth.RoleStaff)
	resp := postJSON(t, newClientWithJar(t), "/auth/login", map[string]string{"username": username, "password": "nope"})
	readBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	username, password := createTestUser(t, auth.RoleStaff)
	client := newClientWithJar(t)
	login(t, client, username, password)

	resp := postJSON(t, client, "/auth/logout", nil)
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/logout, got %d; body: %s", resp.StatusCode, body)
	}

	me, err := client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	readBody(t, me)
	if me.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", me.StatusCode)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	username, password := createTestUser(t, auth.RoleStaff)
	client := newClientWithJar(t)
	result := login(t, client, username, password)

	if err := db.DB.Model(&auth.Session{}).
		Where("user_id = ?", result["user_id"]).
		Update("expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire session: %v", err)
	}

	resp, err := client.Get(testServer.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(body, "Session expired") {
		t.Fatalf("expected 401 Session expired, got %d %q", resp.StatusCode, body)
	}
}

func TestRegisterRequiresAdmin(t *testing.T) {
	newUser := map[string]string{
		"username": fmt.Sprintf("newstaff_%s", uuid.New().String()[:8]),
		"password": "AnotherPass1!",
	}
	t.Cleanup(func() {
		if dbAvailable {
			db.DB.Where("username = ?", newUser["username"]).Delete(&auth.User{})
		}
	})

	staffName, staffPass := createTestUser(t, auth.RoleStaff)
	staff := newClientWithJar(t)
	login(t, staff, staffName, staffPass)
	resp := postJSON(t, staff, "/auth/register", newUser)
	readBody(t, resp)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", resp.StatusCode)
	}

	adminName, adminPass := createTestUser(t, auth.RoleAdmin)
	admin := newClientWithJar(t)
	login(t, admin, adminName, adminPass)
	resp = postJSON(t, admin, "/auth/register", newUser)
	if body := readBody(t, resp); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d; body: %s", resp.StatusCode, body)
	}

	resp = postJSON(t, admin, "/auth/register", newUser)
	readBody(t, resp)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate username, got %d", resp.StatusCode)
	}
}

func TestUpdatePassword(t *testing.T) {
	username, password := createTestUser(t, auth.RoleStaff)
	client := newClientWithJar(t)
	login(t, client, username, password)

	resp := postJSON(t, client, "/auth/password", map[string]string{
		"current_password": password,
		"new_password":     "BrandNewPass9",
	})
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", resp.StatusCode, body)
	}

	login(t, newClientWithJar(t), username, "BrandNewPass9")
}
