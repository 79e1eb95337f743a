package audit

import (
	"context"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows       []Event
	lastOffset int
	lastLimit  int
	lastFilter TimelineFilters
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Event, error) {
	s.lastFilter = filters
	s.lastOffset = offset
	s.lastLimit = limit
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func mockEvent(action Action, at string) Event {
	ts, _ := time.Parse(time.RFC3339, at)
	userID := int64(1)
	return Event{UserID: &userID, Action: action, Entity: "auth", OccurredAt: ts}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []Event{
		mockEvent(ActionLogin, "2026-03-10T10:00:00Z"),
		mockEvent(ActionLogout, "2026-03-09T09:00:00Z"),
		mockEvent(ActionLogin, "2026-03-08T08:00:00Z"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineDefaults(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: -2, PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.Page != 1 {
		t.Fatalf("expected page clamp to 1, got %d", result.Paging.Page)
	}
	if result.Paging.PageSize != 50 {
		t.Fatalf("expected page size clamp to 50, got %d", result.Paging.PageSize)
	}
}

func TestServiceTimelineSecondPage(t *testing.T) {
	repo := &stubTimelineRepo{rows: []Event{
		mockEvent(ActionLogin, "2026-03-08T08:00:00Z"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastOffset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastOffset)
	}
	if result.Paging.PrevPage != 1 {
		t.Fatalf("expected prev page 1, got %d", result.Paging.PrevPage)
	}
	if result.Paging.HasNext {
		t.Fatalf("expected no next page")
	}
}
