package messaging

import (
	"testing"
	"time"

	"github.com/clerkwell/paperwork-hub/internal/records"
)

func TestDisabledServiceIsNoOp(t *testing.T) {
	service, err := NewService(Config{})
	if err != nil {
		t.Fatalf("NewService() with empty URL error: %v", err)
	}

	if service.Enabled() {
		t.Error("service with no URL should be disabled")
	}
	if service.IsConnected() {
		t.Error("disabled service reports connected")
	}

	note := records.NewNote("Patient seen in clinic.", records.SourceTyped)
	if err := service.PublishNoteCreated(note); err != nil {
		t.Errorf("PublishNoteCreated() on disabled service: %v", err)
	}
	if err := service.PublishExtractionCompleted(records.NewExtraction(note.ID, "test-model", nil)); err != nil {
		t.Errorf("PublishExtractionCompleted() on disabled service: %v", err)
	}
	if err := service.PublishAudioTranscribed(&TranscribedEvent{Source: "uploaded", Text: "hello"}); err != nil {
		t.Errorf("PublishAudioTranscribed() on disabled service: %v", err)
	}

	// Close must be safe with no connection
	service.Close()
}

func TestNilServiceIsNoOp(t *testing.T) {
	var service *Service

	if service.Enabled() {
		t.Error("nil service should be disabled")
	}
	if err := service.PublishNoteCreated(nil); err != nil {
		t.Errorf("publish on nil service: %v", err)
	}
	service.Close()
}

func TestSubjects(t *testing.T) {
	subjects := map[string]string{
		SubjectNoteCreated:         "paperwork.notes.created",
		SubjectExtractionCompleted: "paperwork.extractions.completed",
		SubjectFormFilled:          "paperwork.forms.filled",
		SubjectAudioTranscribed:    "paperwork.audio.transcribed",
	}

	for got, want := range subjects {
		if got != want {
			t.Errorf("subject = %q, want %q", got, want)
		}
	}
}

func TestTranscribedEventTimestampDefault(t *testing.T) {
	service := &Service{}
	event := &TranscribedEvent{Source: "realtime", Text: "segment"}

	before := time.Now().Unix()
	if err := service.PublishAudioTranscribed(event); err != nil {
		t.Fatalf("PublishAudioTranscribed() error: %v", err)
	}

	if event.Timestamp < before {
		t.Errorf("Timestamp = %d not defaulted, want >= %d", event.Timestamp, before)
	}
}
