package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHubSendsInitStateThenNewCode(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Upsert(ctx, &models.ExtractionResult{
		Recipient:  "perfil1@example.com",
		Payload:    "8191",
		Kind:       models.KindCode,
		Category:   models.CategoryLoginCode,
		ObservedAt: time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC),
	}))

	hub := NewHub(st, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, EventInitState, first.Event)

	var cached []models.ExtractionResult
	require.NoError(t, json.Unmarshal(first.Data, &cached))
	require.Len(t, cached, 1)
	assert.Equal(t, "8191", cached[0].Payload)

	assert.Equal(t, 1, hub.Count())

	hub.Publish(ctx, &models.ExtractionResult{
		Recipient: "perfil2@example.com",
		Payload:   "https://www.netflix.com/account/travel/verify?nftoken=abc",
		Kind:      models.KindURL,
		Category:  models.CategoryHouseholdUpdate,
	})

	next := readFrame(t, conn)
	assert.Equal(t, EventNewCode, next.Event)

	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(next.Data, &result))
	assert.Equal(t, "perfil2@example.com", result.Recipient)
	assert.Equal(t, models.KindURL, result.Kind)
}

func TestHubEmptyInitState(t *testing.T) {
	hub := NewHub(store.NewMemory(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, EventInitState, first.Event)
	assert.JSONEq(t, `[]`, string(first.Data))
}

func TestHubClientLeaves(t *testing.T) {
	hub := NewHub(store.NewMemory(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	readFrame(t, conn)
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 5*time.Second, 10*time.Millisecond)

	// Publishing with nobody connected is a no-op
	hub.Publish(context.Background(), &models.ExtractionResult{Recipient: "x@example.com"})
}

func TestHubOrigins(t *testing.T) {
	hub := NewHub(store.NewMemory(), []string{"https://Dash.example.com/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"same host", srv.URL, true},
		{"allowed origin", "https://dash.example.com", true},
		{"foreign origin", "https://evil.example.com", false},
		{"allowed host on another scheme", "http://dash.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {tt.origin}})
			if !tt.ok {
				require.ErrorIs(t, err, websocket.ErrBadHandshake)
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer conn.Close()
			assert.Equal(t, EventInitState, readFrame(t, conn).Event)
		})
	}
}
