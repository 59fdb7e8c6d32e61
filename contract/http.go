// Package contract holds the wire types shared by the HTTP functions
// and the Firestore document shapes of the guarded collections.
package contract

// GateRequest is one document operation submitted to the Gate function.
type GateRequest struct {
	Op         string         `json:"op"`
	Collection string         `json:"collection"`
	DocID      string         `json:"doc_id"`
	Data       map[string]any `json:"data,omitempty"`
}

// GateResponse echoes the document the operation touched. Data is only
// set for reads.
type GateResponse struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// AssistRequest is a message to the guideline assistant. ChatID is
// optional; when set, the chat's history is loaded as context.
type AssistRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id,omitempty"`
}

// AssistResponse is one streamed chunk of the assistant's reply.
type AssistResponse struct {
	Response string `json:"response"`
}
