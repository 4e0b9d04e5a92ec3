// Package editor keeps the application sessions and synchronises their
// content with connected editor clients.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/apperr"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/metrics"
	"github.com/spigell/vettavista/internal/models"
	"github.com/spigell/vettavista/internal/ws"
)

// Renderer compiles the editor content for previews.
type Renderer interface {
	RenderResume(ctx context.Context, name, latex string) (string, error)
	RenderCoverLetter(ctx context.Context, name, text string) (string, error)
	Preview(path string) (string, error)
}

// Manager owns the task registry and the editor connections.
type Manager struct {
	hub      *ws.Hub
	renderer Renderer
	logger   *zap.Logger

	mu                  sync.RWMutex
	tasks               map[string]*models.ActiveTask
	coverLetterTemplate string
}

func NewManager(hub *ws.Hub, renderer Renderer, coverLetterTemplate string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		hub:                 hub,
		renderer:            renderer,
		logger:              logger,
		tasks:               make(map[string]*models.ActiveTask),
		coverLetterTemplate: coverLetterTemplate,
	}
}

// SetCoverLetterTemplate replaces the template used as the original of new
// cover letter content.
func (m *Manager) SetCoverLetterTemplate(template string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coverLetterTemplate = template
}

// CoverLetterTemplate returns the configured cover letter template.
func (m *Manager) CoverLetterTemplate() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coverLetterTemplate
}

// AddTask registers task under its session id.
func (m *Manager) AddTask(task *models.ActiveTask) {
	m.mu.Lock()
	m.tasks[task.SessionID] = task
	n := len(m.tasks)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logger.WithSession(m.logger, task.SessionID, task.JobID).Info("task registered")
}

// Task returns the task of sessionID.
func (m *Manager) Task(sessionID string) (*models.ActiveTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[sessionID]
	if !ok {
		m.logger.Debug("session not found", zap.String(logger.FieldSessionID, sessionID))
	}
	return task, ok
}

// CreateSession stores the initial resume content of a registered task.
func (m *Manager) CreateSession(sessionID, originalLatex, customizedLatex string) error {
	task, ok := m.Task(sessionID)
	if !ok {
		return apperr.Validation("No task found for session: %s", sessionID)
	}

	task.Lock()
	task.ResumeData = &models.CustomizedContent{Original: originalLatex, Customized: customizedLatex}
	task.Unlock()

	m.logger.Info("initialized content for session", zap.String(logger.FieldSessionID, sessionID))
	return nil
}

// Connect registers conn for sessionID and sends the initial state. Unknown
// sessions are closed with InvalidSessionCode and nothing is registered.
func (m *Manager) Connect(_ context.Context, sessionID string, conn *websocket.Conn) (*ws.Client, error) {
	client := ws.NewClient(sessionID, conn)

	task, ok := m.Task(sessionID)
	if !ok {
		m.logger.Error("invalid session id", zap.String(logger.FieldSessionID, sessionID))
		_ = client.Close(InvalidSessionCode, "Invalid session ID")
		return nil, apperr.Validation("Invalid session ID")
	}

	m.hub.Register(client)

	snapshot := task.Snapshot()
	data := &PhaseData{RecommendedSkills: snapshot.RecommendedSkills}
	if snapshot.ResumeData != nil {
		data.Original = snapshot.ResumeData.Original
		data.Customized = snapshot.ResumeData.Customized
	}
	if err := client.WriteJSON(ServerMessage{Type: MessageInit, PhaseData: data}); err != nil {
		m.Disconnect(sessionID)
		_ = client.Close(InvalidSessionCode, err.Error())
		return nil, fmt.Errorf("send initial state: %w", err)
	}

	logger.WithSession(m.logger, sessionID, snapshot.JobID).Info("sent initial data to session")
	return client, nil
}

// Disconnect drops the connection of sessionID. The task is kept.
func (m *Manager) Disconnect(sessionID string) {
	m.hub.Remove(sessionID)
}

// Serve connects conn and applies every frame it sends as an update until
// the connection ends.
func (m *Manager) Serve(ctx context.Context, sessionID string, conn *websocket.Conn) {
	client, err := m.Connect(ctx, sessionID, conn)
	if err != nil {
		return
	}

	m.hub.ReadLoop(ctx, client, func(ctx context.Context, data []byte) {
		var update Update
		if err := json.Unmarshal(data, &update); err != nil {
			m.sendError(client, "Invalid JSON data")
			return
		}
		update.SessionID = sessionID

		if resp := m.HandleUpdate(ctx, update); !resp.Success {
			m.sendError(client, resp.ErrorMessage)
		}
	})
}

func (m *Manager) sendError(client *ws.Client, message string) {
	m.logger.Error("error for client", zap.String(logger.FieldClientID, client.ID), zap.String("error", message))
	if err := client.WriteJSON(ServerMessage{Type: MessageError, ErrorMessage: message}); err != nil {
		m.logger.Error("failed to send error message", zap.String(logger.FieldClientID, client.ID), zap.Error(err))
	}
}

// HandleUpdate stores the new content of the active phase, renders a preview
// and broadcasts the result.
func (m *Manager) HandleUpdate(ctx context.Context, update Update) Response {
	task, ok := m.Task(update.SessionID)
	if !ok {
		return Response{Success: false, ErrorMessage: "Session not found"}
	}
	log := logger.WithSession(m.logger, update.SessionID, task.JobID)

	phase, content, err := m.applyUpdate(task, update.NewValue)
	if err != nil {
		log.Error("error handling update", zap.Error(err))
		return Response{Success: false, ErrorMessage: "Internal error: " + err.Error()}
	}

	var pdfPath string
	if phase == models.PhaseCoverLetter {
		pdfPath, err = m.renderer.RenderCoverLetter(ctx, "customized_cover_letter_"+update.SessionID, content.Customized)
	} else {
		pdfPath, err = m.renderer.RenderResume(ctx, "customized_resume_"+update.SessionID, content.Customized)
	}
	if err != nil {
		log.Error("error handling update", zap.Error(err))
		return Response{Success: false, ErrorMessage: "Internal error: " + err.Error()}
	}

	preview, err := m.renderer.Preview(pdfPath)
	task.Lock()
	if err != nil {
		log.Error("failed to convert PDF to base64", zap.Error(err))
	} else {
		task.PreviewData = preview
	}
	previewData := task.PreviewData
	task.Unlock()

	if _, err := m.Broadcast(ServerMessage{
		Type: MessageUpdate,
		PhaseData: &PhaseData{
			Original:    content.Original,
			Customized:  content.Customized,
			PreviewData: previewData,
		},
	}); err != nil {
		log.Error("error handling update", zap.Error(err))
		return Response{Success: false, ErrorMessage: "Internal error: " + err.Error()}
	}

	log.Info("generated preview for session")
	return Response{Success: true}
}

func (m *Manager) applyUpdate(task *models.ActiveTask, value string) (models.ApplicationPhase, models.CustomizedContent, error) {
	template := m.CoverLetterTemplate()

	task.Lock()
	defer task.Unlock()

	switch task.CurrentPhase {
	case models.PhaseCoverLetter:
		if task.CoverLetterData == nil {
			task.CoverLetterData = &models.CustomizedContent{Original: template}
		}
		task.CoverLetterData.Customized = value
		return task.CurrentPhase, *task.CoverLetterData, nil
	default:
		if task.ResumeData == nil {
			return "", models.CustomizedContent{}, apperr.Validation("No resume data available")
		}
		task.ResumeData.Customized = value
		return task.CurrentPhase, *task.ResumeData, nil
	}
}

// Broadcast sends msg to every editor connection.
func (m *Manager) Broadcast(msg ServerMessage) (int, error) {
	m.logger.Info("broadcasting message", zap.String("type", string(msg.Type)), zap.String("phase", string(msg.Phase)))
	return m.hub.Broadcast(msg)
}
