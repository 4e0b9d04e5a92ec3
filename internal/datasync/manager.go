// Package datasync pushes the blacklist and recent job history to connected
// clients.
package datasync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
	"github.com/spigell/vettavista/internal/ws"
)

const (
	// HistoryDays is the window of job history included in the state.
	HistoryDays = 30

	TypeSyncResponse = "sync_response"
	TypeSyncRequest  = "sync_request"
)

type BlacklistSource interface {
	All() ([]models.BlacklistEntry, error)
}

type HistorySource interface {
	Search(query string, status models.ApplicationStatus, days int) ([]models.HistoryEntry, error)
}

// Message is the envelope exchanged on the sync channel.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type response struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// State is the full synchronised state.
type State struct {
	Blacklist []models.BlacklistEntry `json:"blacklist"`
	History   []models.HistoryEntry   `json:"history"`
}

type Manager struct {
	hub       *ws.Hub
	blacklist BlacklistSource
	history   HistorySource
	logger    *zap.Logger
}

func NewManager(hub *ws.Hub, blacklist BlacklistSource, history HistorySource, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{hub: hub, blacklist: blacklist, history: history, logger: logger}
}

// State reads the blacklist and the history of the last HistoryDays days.
func (m *Manager) State() (State, error) {
	blacklist, err := m.blacklist.All()
	if err != nil {
		return State{}, fmt.Errorf("read blacklist: %w", err)
	}
	history, err := m.history.Search("", "", HistoryDays)
	if err != nil {
		return State{}, fmt.Errorf("read history: %w", err)
	}
	if blacklist == nil {
		blacklist = []models.BlacklistEntry{}
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}
	return State{Blacklist: blacklist, History: history}, nil
}

// BroadcastUpdate sends data to every sync client as a sync_response.
func (m *Manager) BroadcastUpdate(_ context.Context, data any) error {
	sent, err := m.hub.Broadcast(response{Type: TypeSyncResponse, Data: data})
	if err != nil {
		return err
	}
	m.logger.Info("update broadcast", zap.Int("clients", sent))
	return nil
}

// Connect registers conn and broadcasts the current state.
func (m *Manager) Connect(ctx context.Context, clientID string, conn *websocket.Conn) (*ws.Client, error) {
	client := ws.NewClient(clientID, conn)
	m.hub.Register(client)

	if err := m.broadcastState(ctx); err != nil {
		m.hub.Unregister(client)
		_ = client.Close(websocket.CloseInternalServerErr, "failed to load state")
		return nil, err
	}
	m.logger.Info("client connected", zap.String(logger.FieldClientID, clientID))
	return client, nil
}

// Serve connects conn and handles its messages until it disconnects.
func (m *Manager) Serve(ctx context.Context, clientID string, conn *websocket.Conn) {
	client, err := m.Connect(ctx, clientID, conn)
	if err != nil {
		m.logger.Error("error accepting connection", zap.String(logger.FieldClientID, clientID), zap.Error(err))
		return
	}
	m.hub.ReadLoop(ctx, client, func(ctx context.Context, data []byte) {
		if err := m.HandleMessage(ctx, clientID, data); err != nil {
			m.logger.Error("error handling message", zap.String(logger.FieldClientID, clientID), zap.Error(err))
		}
	})
}

// HandleMessage re-broadcasts the state on sync_request. Other message types
// are ignored.
func (m *Manager) HandleMessage(ctx context.Context, clientID string, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if msg.Type != TypeSyncRequest {
		m.logger.Warn("unknown message type", zap.String(logger.FieldClientID, clientID), zap.String("type", msg.Type))
		return nil
	}
	return m.broadcastState(ctx)
}

func (m *Manager) broadcastState(ctx context.Context) error {
	state, err := m.State()
	if err != nil {
		return err
	}
	return m.BroadcastUpdate(ctx, state)
}
