package providers

import (
	"context"
	"errors"
	"fmt"

	"content-hub/models"
	"content-hub/normalizer"
)

// GenerationRequest beschreibt eine Content-Anfrage an einen Generator.
type GenerationRequest struct {
	SessionID    string                    `json:"sessionId"`
	Topic        string                    `json:"topic"`
	TopicArea    string                    `json:"topicArea,omitempty"`
	Title        string                    `json:"title,omitempty"`
	ContentType  string                    `json:"contentType,omitempty"`
	Keywords     []string                  `json:"keywords,omitempty"`
	Instructions string                    `json:"instructions,omitempty"`
	Existing     *normalizer.ContentBundle `json:"existingContent,omitempty"`
}

// Generator ist das Interface, das jeder Content-Generator (n8n-Webhook, OpenAI) implementieren muss.
type Generator interface {
	// Generate schickt die Anfrage ab und gibt den unveränderten Antworttext zurück.
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// Name gibt den eindeutigen Namen des Generators zurück (z.B. "n8n").
	Name() string
}

// KeywordSource liefert Keyword-Kennzahlen aus einer SEO-Datenquelle.
type KeywordSource interface {
	Search(ctx context.Context, phrase string, limit int) ([]*models.Keyword, error)
	Name() string
}

// TransportError steht für Netzwerkfehler, Timeouts und Nicht-2xx-Antworten eines Upstreams.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out", e.Provider)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsTransportError prüft, ob err (auch verpackt) ein TransportError ist.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
