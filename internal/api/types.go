package api

// Persona is a configurable interviewer personality served by the backend.
type Persona struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	SystemPrompt   string `json:"system_prompt"`
	InitialMessage string `json:"initial_message"`
	Language       string `json:"language"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// PersonaCreate is the payload for creating a persona.
type PersonaCreate struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	SystemPrompt   string `json:"system_prompt"`
	InitialMessage string `json:"initial_message"`
	Language       string `json:"language"`
}

// PersonaUpdate is the payload for a partial persona update. Nil fields are
// left unchanged server-side.
type PersonaUpdate struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	SystemPrompt   *string `json:"system_prompt,omitempty"`
	InitialMessage *string `json:"initial_message,omitempty"`
	Language       *string `json:"language,omitempty"`
}

// InitialResponse is the persona's greeting with synthesized audio.
type InitialResponse struct {
	Text        string  `json:"text"`
	Audio       string  `json:"audio"` // base64-encoded waveform
	Duration    float64 `json:"duration"`
	PersonaID   int     `json:"persona_id"`
	PersonaName string  `json:"persona_name"`
}

// ChatMessage is one turn of conversation history, role "user" or
// "assistant". Message ids are client-local and never sent.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat turn: full ordered history plus the
// active persona.
type ChatRequest struct {
	Messages  []ChatMessage `json:"messages"`
	PersonaID int           `json:"persona_id"`
}

// ChatResponse is the assistant's reply. A non-empty Error in an otherwise
// successful response is still a failure.
type ChatResponse struct {
	Text     string  `json:"text"`
	Audio    string  `json:"audio,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// errorBody is how the backend reports failures; FastAPI uses "detail",
// the chat endpoints use "error".
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (e errorBody) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
