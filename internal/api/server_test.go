package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/MenuRater/internal/metrics"
	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository/memory"
	"github.com/Kerhoff/MenuRater/internal/service"
	"github.com/Kerhoff/MenuRater/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := service.New(memory.NewStore(), logger, nil)
	srv, err := NewServer(svc, session.NewMemoryStore(time.Hour), metrics.New(), logger, Options{SessionTTL: time.Hour})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, ts *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: ts.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	return readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	return readBody(b.t, resp)
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (b *browser) signUp(username, password string) {
	b.t.Helper()
	_, body := b.post("/register", url.Values{"username": {username}, "password": {password}})
	require.Contains(b.t, body, "Registration successful! Please log in.")
	_, body = b.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Contains(b.t, body, "Logged in as "+username)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestProtectedPagesRequireLogin(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)

	status, body := b.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Please log in to access this page.")
	assert.Contains(t, body, `action="/login"`)
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	b.signUp("alice", "secret")

	_, body := b.post("/register", url.Values{"username": {"alice"}, "password": {"x"}})
	assert.Contains(t, body, "Username already exists. Please choose a different one.")

	_, body = b.get("/logout")
	assert.Contains(t, body, "You have been logged out.")

	_, body = b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Contains(t, body, "Invalid credentials. Please try again.")

	_, body = b.get("/logout")
	assert.Contains(t, body, "You have been logged out.", "logout without a session still redirects")
}

func TestLoginRotatesSession(t *testing.T) {
	ts := newTestServer(t)
	b := newBrowser(t, ts)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)

	b.get("/")
	before := b.client.Jar.Cookies(u)
	require.Len(t, before, 1, "the login guard stores its flash on a new session")

	b.signUp("alice", "secret")
	after := b.client.Jar.Cookies(u)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0].Value, after[0].Value)
}

func TestAnonymousRequestsStoreNoSession(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := service.New(memory.NewStore(), logger, nil)
	srv, err := NewServer(svc, session.NewRedisStore(client, time.Hour), metrics.New(), logger, Options{SessionTTL: time.Hour})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for _, path := range []string{"/health", "/login", "/register", "/health"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		status, _ := readBody(t, resp)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Empty(t, resp.Header.Values("Set-Cookie"), path)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "expired"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))

	assert.Empty(t, mr.Keys())

	b := newBrowser(t, ts)
	b.signUp("alice", "secret")
	assert.NotEmpty(t, mr.Keys(), "logging in stores a session")
}

func TestRestaurantFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := newBrowser(t, ts)
	alice.signUp("alice", "secret")

	_, body := alice.post("/add", url.Values{"name": {"Tacos"}})
	assert.Contains(t, body, `href="/restaurant/1"`)

	_, body = alice.post("/restaurant/1/add_menu_item", url.Values{"name": {"Burrito"}, "rating": {"3"}})
	assert.Contains(t, body, "Burrito")
	assert.Contains(t, body, "Rating: 3.0")

	_, body = alice.post("/menu_item/1/rate", url.Values{"rating": {"5"}})
	assert.Contains(t, body, "Rating updated successfully!")
	assert.Contains(t, body, "Rating: 5.0 over 1 items")
	assert.Contains(t, body, "History (2)")

	_, body = alice.post("/menu_item/1/update_notes", url.Values{"notes": {"extra salsa"}})
	assert.Contains(t, body, "Notes updated successfully!")
	assert.Contains(t, body, "Notes: extra salsa")

	_, body = alice.get("/?search=burr")
	assert.Contains(t, body, "Tacos")
	_, body = alice.get("/?search=pizza")
	assert.Contains(t, body, "No restaurants found.")

	resp, err := alice.client.Get(ts.URL + "/menu_item/1/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	var history []models.MenuItemRevision
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 3)
	assert.Equal(t, 5.0, history[0].Rating)
	assert.Equal(t, 3.0, history[2].Rating)
}

func TestSharingAndOwnership(t *testing.T) {
	ts := newTestServer(t)
	alice := newBrowser(t, ts)
	bob := newBrowser(t, ts)
	alice.signUp("alice", "secret")
	bob.signUp("bob", "hunter2")

	alice.post("/add", url.Values{"name": {"Tacos"}})
	alice.post("/restaurant/1/add_menu_item", url.Values{"name": {"Burrito"}, "rating": {"3"}})

	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"share", "bob", "Restaurant shared with bob"},
		{"again", "bob", "Restaurant already shared with this user."},
		{"self", "alice", "Restaurant already shared with this user."},
		{"unknown", "zed", "User not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := alice.post("/share/1", url.Values{"username": {tt.username}})
			assert.Contains(t, body, tt.want)
		})
	}

	_, body := bob.get("/?view=shared")
	assert.Contains(t, body, "Tacos")

	_, body = bob.post("/share/1", url.Values{"username": {"bob"}})
	assert.Contains(t, body, "You can only share restaurants you own.")

	_, body = bob.post("/menu_item/1/rate", url.Values{"rating": {"1"}})
	assert.Contains(t, body, "You can only rate your own menu items.")
	assert.Contains(t, body, "Rating: 3.0 over 1 items")

	_, body = bob.post("/menu_item/1/update_notes", url.Values{"notes": {"meh"}})
	assert.Contains(t, body, "You can only update notes for your own menu items.")

	_, body = bob.get("/restaurant/99")
	assert.Contains(t, body, "Restaurant not found.")

	_, body = bob.post("/menu_item/99/rate", url.Values{"rating": {"1"}})
	assert.Contains(t, body, "Menu item not found.")
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	alice := newBrowser(t, ts)
	alice.signUp("alice", "secret")
	alice.post("/add", url.Values{"name": {"Tacos"}})
	alice.post("/restaurant/1/add_menu_item", url.Values{"name": {"Burrito"}, "rating": {"3"}})

	tests := []struct {
		name string
		path string
		form url.Values
		want int
	}{
		{"malformed rating", "/menu_item/1/rate", url.Values{"rating": {"five"}}, http.StatusBadRequest},
		{"nan rating", "/menu_item/1/rate", url.Values{"rating": {"NaN"}}, http.StatusBadRequest},
		{"inf rating", "/restaurant/1/add_menu_item", url.Values{"name": {"X"}, "rating": {"Inf"}}, http.StatusBadRequest},
		{"missing rating", "/restaurant/1/add_menu_item", url.Values{"name": {"X"}}, http.StatusBadRequest},
		{"missing name", "/add", url.Values{}, http.StatusBadRequest},
		{"id out of range", "/menu_item/99999999999999999999/rate", url.Values{"rating": {"1"}}, http.StatusBadRequest},
		{"non-numeric id", "/menu_item/abc/rate", url.Values{"rating": {"1"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := alice.post(tt.path, tt.form)
			assert.Equal(t, tt.want, status)
		})
	}

	_, body := alice.get("/restaurant/1")
	assert.True(t, strings.Contains(body, "History (1)"), "rejected requests write nothing")
}

func TestCORS(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := service.New(memory.NewStore(), logger, nil)
	srv, err := NewServer(svc, session.NewMemoryStore(time.Hour), nil, logger, Options{
		SessionTTL:         time.Hour,
		CORSAllowedOrigins: []string{"https://menu.example"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://menu.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://menu.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
