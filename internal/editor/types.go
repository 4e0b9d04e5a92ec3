package editor

import "github.com/spigell/vettavista/internal/models"

type MessageType string

const (
	MessageInit        MessageType = "init"
	MessageUpdate      MessageType = "update"
	MessageError       MessageType = "error"
	MessagePhaseChange MessageType = "phase_change"
)

// InvalidSessionCode is the close code sent to connections for unknown
// sessions.
const InvalidSessionCode = 4000

// PhaseData is the content of the active phase.
type PhaseData struct {
	Original          string   `json:"original"`
	Customized        string   `json:"customized"`
	PreviewData       string   `json:"preview_data,omitempty"`
	RecommendedSkills []string `json:"recommended_skills,omitempty"`
}

// ServerMessage is sent from the server to editor clients.
type ServerMessage struct {
	Type         MessageType             `json:"type"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Phase        models.ApplicationPhase `json:"phase,omitempty"`
	PhaseData    *PhaseData              `json:"phase_data,omitempty"`
}

// Update is an edit received from a client.
type Update struct {
	SessionID string `json:"-"`
	NewValue  string `json:"new_value"`
}

// Response is the outcome of applying an Update.
type Response struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}
