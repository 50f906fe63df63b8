package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/MenuRater/internal/events"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/restaurant/{id}", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/restaurant/{id}", http.StatusOK, 30*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/login", http.StatusSeeOther, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/restaurant/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/login", "303")))
}

func TestObserveLogin(t *testing.T) {
	m := New()
	m.ObserveLogin(true)
	m.ObserveLogin(false)
	m.ObserveLogin(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("failure")))
}

func TestEventsCounter(t *testing.T) {
	m := New()
	p := m.Events()

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.MenuItemRated}))
	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.MenuItemRated}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("menu_item.rated")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveLogin(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `menurater_logins_total{result="success"} 1`)
}
