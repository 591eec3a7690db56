package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/clerkwell/paperwork-hub/internal/records"
)

// NATS subjects for paperwork lifecycle events
const (
	SubjectNoteCreated         = "paperwork.notes.created"
	SubjectExtractionCompleted = "paperwork.extractions.completed"
	SubjectFormFilled          = "paperwork.forms.filled"
	SubjectAudioTranscribed    = "paperwork.audio.transcribed"
)

// Config holds NATS connection settings. An empty URL disables publishing.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Service publishes paperwork lifecycle events to NATS. When no URL is
// configured the service is disabled and every publish is a silent no-op,
// so the hub runs without a broker.
type Service struct {
	conn *nats.Conn
	url  string
}

// TranscribedEvent is the payload published when audio becomes text.
type TranscribedEvent struct {
	NoteID          string  `json:"note_id,omitempty"`
	SessionID       string  `json:"session_id,omitempty"`
	Source          string  `json:"source"`
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Timestamp       int64   `json:"timestamp"`
}

// NewService connects to NATS, or returns a disabled service when url is
// empty. A configured but unreachable broker is an error so a bad URL
// fails at startup instead of dropping events silently.
func NewService(cfg Config) (*Service, error) {
	if cfg.URL == "" {
		log.Println("📪 NATS publishing disabled (no URL configured)")
		return &Service{}, nil
	}

	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	log.Printf("🔌 Connecting to NATS at %s", cfg.URL)

	opts := []nats.Option{
		nats.Name("paperwork-hub"),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return &Service{conn: conn, url: cfg.URL}, nil
}

// Enabled reports whether events will actually reach a broker.
func (s *Service) Enabled() bool {
	return s != nil && s.conn != nil
}

// PublishNoteCreated publishes a stored clinical note.
func (s *Service) PublishNoteCreated(note *records.Note) error {
	return s.publish(SubjectNoteCreated, note)
}

// PublishExtractionCompleted publishes an extraction with its candidates.
func (s *Service) PublishExtractionCompleted(extraction *records.Extraction) error {
	return s.publish(SubjectExtractionCompleted, extraction)
}

// PublishFormFilled publishes a filled form record.
func (s *Service) PublishFormFilled(record *records.FormRecord) error {
	return s.publish(SubjectFormFilled, record)
}

// PublishAudioTranscribed publishes a completed transcription.
func (s *Service) PublishAudioTranscribed(event *TranscribedEvent) error {
	if event != nil && event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	return s.publish(SubjectAudioTranscribed, event)
}

func (s *Service) publish(subject string, payload interface{}) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}

	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Printf("📤 Published event to %s (%d bytes)", subject, len(data))
	return nil
}

// Close closes the NATS connection. Safe on a disabled service.
func (s *Service) Close() {
	if s != nil && s.conn != nil {
		s.conn.Close()
		log.Println("🔌 NATS connection closed")
	}
}

// IsConnected returns true if connected to NATS.
func (s *Service) IsConnected() bool {
	return s != nil && s.conn != nil && s.conn.IsConnected()
}

// Stats returns connection statistics for the health endpoint.
func (s *Service) Stats() nats.Statistics {
	if s != nil && s.conn != nil {
		return s.conn.Stats()
	}
	return nats.Statistics{}
}
