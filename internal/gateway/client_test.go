package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilove/ridersync/internal/fault"
)

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rider/auth/login", r.URL.Path)
		w.Write([]byte(`{"data":{"token":"tok-1","expiresInSeconds":3600,"rider":{"id":"R42","fullName":"Ama Mensah","mode":"staff"}},"error":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Login(context.Background(), LoginRequest{Mode: "staff", RiderID: "R42", PIN: "1234", Platform: "cli"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, "R42", got.Rider.ID)
}

func TestFetchQueue_SendsBearerAndLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "120", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":[{"id":"o1","orderNumber":"R001","customerName":"A","address":"Addr","status":"ACCEPTED","createdAt":"2026-08-29T08:00:00Z","updatedAt":"2026-08-29T08:30:00Z"}],"error":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	orders, err := c.FetchQueue(context.Background(), "tok-1", 120)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, "ACCEPTED", orders[0].Status)
}

func TestCall_EnvelopeErrorOnHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"error":"Rider not on shift"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchQueue(context.Background(), "tok-1", 120)
	require.Error(t, err)
	assert.Equal(t, fault.CodeServerRejected, fault.CodeOf(err))
	assert.Equal(t, "Rider not on shift", fault.MessageOf(err))
}

func TestCall_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchQueue(context.Background(), "stale", 120)
	require.Error(t, err)
	assert.True(t, fault.IsSessionExpired(err))
	assert.Equal(t, "Session expired. Sign in again.", fault.MessageOf(err))
}

func TestCall_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchQueue(context.Background(), "tok-1", 120)
	require.Error(t, err)
	assert.Equal(t, fault.CodeRateLimited, fault.CodeOf(err))
}

func TestCall_ServerRejectedWithBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Order already delivered"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.VerifyDelivery(context.Background(), "tok-1", "o1", "123456")
	require.Error(t, err)
	assert.Equal(t, fault.CodeServerRejected, fault.CodeOf(err))
	assert.Equal(t, "Order already delivered", fault.MessageOf(err))
}

func TestCall_TransportUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	c := NewClient(srv.URL)
	_, err := c.FetchQueue(context.Background(), "tok-1", 120)
	require.Error(t, err)
	assert.True(t, fault.IsTransport(err))
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeouts(time.Second, 50*time.Millisecond))
	_, err := c.FetchQueue(context.Background(), "tok-1", 120)
	require.Error(t, err)
	assert.Equal(t, fault.CodeTimeout, fault.CodeOf(err))
}

func TestVerifyDelivery_ExplicitRejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"success":false,"attempts":2,"attemptsRemaining":1},"error":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.VerifyDelivery(context.Background(), "tok-1", "o1", "000000")
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Equal(t, 1, got.AttemptsRemaining)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/", NormalizeBaseURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/", NormalizeBaseURL("  https://api.example.com///  "))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", extractErrorMessage([]byte(`{"error":"boom"}`)))
	assert.Equal(t, `say "hi"`, extractErrorMessage([]byte(`{"error":"say \"hi\""}`)))
	assert.Equal(t, "", extractErrorMessage([]byte(`not json`)))
}

func TestRegistry_SharesClientPerBaseURL(t *testing.T) {
	r := NewRegistry()
	a := r.Client("https://api.example.com")
	b := r.Client("https://api.example.com/")
	c := r.Client("https://other.example.com")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
