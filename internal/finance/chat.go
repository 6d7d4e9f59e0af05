package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgellow/finfront/internal/apiclient"
	"github.com/google/uuid"
)

// ChatService drives the conversational transaction entry. The backend's
// assistant turns free text into a draft transaction that the user confirms.
type ChatService struct {
	api apiclient.Doer
}

// NewSessionID returns a fresh chat session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// ChatMessage is one user turn
type ChatMessage struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatReply is the assistant's answer, optionally with a proposed transaction
type ChatReply struct {
	SessionID string            `json:"sessionId"`
	Reply     string            `json:"reply"`
	Draft     *TransactionInput `json:"draft,omitempty"`
}

// ChatConfirmation accepts a draft
type ChatConfirmation struct {
	SessionID string           `json:"sessionId"`
	Draft     TransactionInput `json:"draft"`
}

// Send posts text to the assistant. An empty sessionID starts a new session.
func (s *ChatService) Send(ctx context.Context, sessionID, text string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is required")
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	} else if err := uuid.Validate(sessionID); err != nil {
		return nil, fmt.Errorf("invalid chat session id: %w", err)
	}

	reply, err := create[ChatReply](ctx, s.api, PathChat+"/messages", ChatMessage{SessionID: sessionID, Message: text})
	if err != nil {
		return nil, err
	}
	if reply.SessionID == "" {
		reply.SessionID = sessionID
	}
	return reply, nil
}

// Confirm records the draft as a transaction
func (s *ChatService) Confirm(ctx context.Context, sessionID string, draft TransactionInput) (*Transaction, error) {
	if err := uuid.Validate(sessionID); err != nil {
		return nil, fmt.Errorf("invalid chat session id: %w", err)
	}
	if !draft.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", draft.Type)
	}
	return create[Transaction](ctx, s.api, PathChat+"/confirm", ChatConfirmation{SessionID: sessionID, Draft: draft})
}
