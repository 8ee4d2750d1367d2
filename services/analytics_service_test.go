package services

import (
	"errors"
	"testing"

	"experteneAPI/internal/types/analytics"

	"github.com/google/uuid"
)

func TestValidateEventRequiresType(t *testing.T) {
	err := ValidateEvent(&analytics.RecordEventRequest{})
	if err == nil {
		t.Fatal("expected error for missing event_type")
	}
}

func TestValidateEventRejectsUnknownType(t *testing.T) {
	err := ValidateEvent(&analytics.RecordEventRequest{EventType: "made_up"})
	if !errors.Is(err, ErrUnknownEventType) {
		t.Errorf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestValidateEventArticleViewNeedsArticle(t *testing.T) {
	err := ValidateEvent(&analytics.RecordEventRequest{EventType: analytics.EventArticleView})
	if err == nil {
		t.Fatal("expected error for article_view without article_id")
	}

	id := uuid.New()
	err = ValidateEvent(&analytics.RecordEventRequest{
		EventType: analytics.EventArticleView,
		ArticleID: &id,
	})
	if err != nil {
		t.Errorf("valid article_view rejected: %v", err)
	}
}

func TestValidateEventAcceptsKnownTypes(t *testing.T) {
	for et := range analytics.KnownEventTypes {
		if et == analytics.EventArticleView {
			continue
		}
		if err := ValidateEvent(&analytics.RecordEventRequest{EventType: et}); err != nil {
			t.Errorf("known type %s rejected: %v", et, err)
		}
	}
}
