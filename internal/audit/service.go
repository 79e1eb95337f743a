package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineFilters narrows the trail query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Action   string
	UserID   int64
	Page     int
	PageSize int
}

// PagingInfo carries paging state for timeline responses.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Event
	Paging PagingInfo
}

// Repository provides the query access the timeline needs.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Event, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches a window of the trail, newest first. It asks for one row
// beyond the page size to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.TimelineWindow(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow returns a slice of the trail ordered by occurrence time.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, entity, ip, user_agent, occurred_at
		FROM audit_events
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		  AND ($3::text IS NULL OR action = $3)
		  AND ($4::bigint IS NULL OR user_id = $4)
		ORDER BY occurred_at DESC
		OFFSET $5 LIMIT $6`,
		optionalTime(filters.From),
		optionalTime(filters.To),
		optionalText(filters.Action),
		optionalInt(filters.UserID),
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			userID     pgtype.Int8
			ip         pgtype.Text
			ua         pgtype.Text
			occurredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&event.ID, &userID, &event.Action, &event.Entity, &ip, &ua, &occurredAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := userID.Int64
			event.UserID = &id
		}
		event.IP = ip.String
		event.UserAgent = ua.String
		if occurredAt.Valid {
			event.OccurredAt = occurredAt.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalInt(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
