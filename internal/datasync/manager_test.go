package datasync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/vettavista/internal/models"
	"github.com/spigell/vettavista/internal/ws"
)

type fakeBlacklist struct {
	entries []models.BlacklistEntry
	err     error
}

func (f *fakeBlacklist) All() ([]models.BlacklistEntry, error) { return f.entries, f.err }

type fakeHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	days    int
}

func (f *fakeHistory) Search(_ string, _ models.ApplicationStatus, days int) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = days
	return f.entries, nil
}

func (f *fakeHistory) lastDays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.days
}

func newServer(t *testing.T, m *Manager) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Serve(r.Context(), strings.TrimPrefix(r.URL.Path, "/"), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/"+id, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestConnectBroadcastsState(t *testing.T) {
	history := &fakeHistory{entries: []models.HistoryEntry{{JobID: "1", Title: "Go Developer"}}}
	m := NewManager(ws.NewHub("sync", nil), &fakeBlacklist{entries: []models.BlacklistEntry{{Company: "Evil Corp"}}}, history, nil)
	srv := newServer(t, m)

	conn := dial(t, srv, "client-1")
	msg := read(t, conn)

	assert.Contains(t, msg, `"type":"sync_response"`)
	assert.Contains(t, msg, `"company":"Evil Corp"`)
	assert.Contains(t, msg, `"job_id":"1"`)
	assert.Equal(t, HistoryDays, history.lastDays())
}

func TestSyncRequestRebroadcasts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewManager(ws.NewHub("sync", nil), &fakeBlacklist{}, &fakeHistory{}, zap.New(core))
	srv := newServer(t, m)

	conn := dial(t, srv, "client-1")
	assert.JSONEq(t, `{"type":"sync_response","data":{"blacklist":[],"history":[]}}`, read(t, conn))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeSyncRequest}))
	assert.JSONEq(t, `{"type":"sync_response","data":{"blacklist":[],"history":[]}}`, read(t, conn))
	assert.Equal(t, 1, logs.FilterMessage("unknown message type").Len())
}

func TestBroadcastUpdate(t *testing.T) {
	m := NewManager(ws.NewHub("sync", nil), &fakeBlacklist{}, &fakeHistory{}, nil)
	srv := newServer(t, m)

	a := dial(t, srv, "a")
	read(t, a)
	b := dial(t, srv, "b")
	read(t, a)
	read(t, b)

	require.NoError(t, m.BroadcastUpdate(context.Background(), map[string]any{"history": []string{}}))
	assert.JSONEq(t, `{"type":"sync_response","data":{"history":[]}}`, read(t, a))
	assert.JSONEq(t, `{"type":"sync_response","data":{"history":[]}}`, read(t, b))
}

func TestStateError(t *testing.T) {
	m := NewManager(ws.NewHub("sync", nil), &fakeBlacklist{err: errors.New("disk")}, &fakeHistory{}, nil)
	_, err := m.State()
	require.Error(t, err)

	srv := newServer(t, m)
	conn := dial(t, srv, "c")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseInternalServerErr, closeErr.Code)
}

func TestHandleMessageRejectsInvalidJSON(t *testing.T) {
	m := NewManager(ws.NewHub("sync", nil), &fakeBlacklist{}, &fakeHistory{}, nil)
	assert.Error(t, m.HandleMessage(context.Background(), "c", []byte("{")))
}
