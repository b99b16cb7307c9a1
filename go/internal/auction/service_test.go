package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestMux(e *testEnv) *http.ServeMux {
	mux := http.NewServeMux()
	NewService(e.app).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionEndpointRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	host := e.users.add("host", 1_000_000)
	mux := newTestMux(e)

	rec := doJSON(t, mux, http.MethodPost, "/api/auctions", map[string]any{
		"name":    "",
		"host_id": host,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/auctions", map[string]any{
		"name": "no host",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionEndpointUnknownHostNotFound(t *testing.T) {
	e := newTestEnv(t)
	mux := newTestMux(e)

	rec := doJSON(t, mux, http.MethodPost, "/api/auctions", map[string]any{
		"name":    "ghost lobby",
		"host_id": uuid.New(),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoinSessionEndpointUnknownUserNotFound(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	host := e.users.add("host", 1_000_000)
	mux := newTestMux(e)

	sess, err := e.app.CreateSession(ctx, CreateSessionRequest{Name: "lobby", HostID: host})
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/auctions/%s/join", sess.ID), map[string]any{
		"user_id": uuid.New(),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBidEndpointRejectionCarriesThreshold(t *testing.T) {
	e := newTestEnv(t)
	sess, _, guest := e.startedSession(t, "winger") // gold floor 50000
	mux := newTestMux(e)

	rec := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/auctions/%s/bid", sess.ID), map[string]any{
		"user_id": guest,
		"amount":  1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Reason   string `json:"reason"`
		Required int64  `json:"required"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, string(RejectBelowMinimum), body.Reason)
	require.Equal(t, int64(50_000), body.Required)
}
