package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notionsync/internal/mapping"
	"notionsync/internal/notion"
	"notionsync/internal/record"
)

// Pages is the destination side of a sync: one Notion database.
type Pages interface {
	FindPageByUID(ctx context.Context, property, uid string) (string, error)
	CreatePage(ctx context.Context, properties map[string]any) (string, error)
	UpdatePage(ctx context.Context, pageID string, properties map[string]any) error
}

// Marker records a successful sync back in the source.
type Marker interface {
	MarkSynced(ctx context.Context, uid string) error
}

type Service struct {
	Pages   Pages
	Mapping mapping.Mapping
	Marker  Marker
	Logger  *zap.Logger
	Now     func() time.Time
}

type Failure struct {
	UID   string `json:"uid"`
	Error string `json:"error"`
}

type Summary struct {
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	Failures   []Failure `json:"failures,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewService(pages Pages, m mapping.Mapping, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Pages:   pages,
		Mapping: m,
		Logger:  logger,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run upserts records one at a time. Row-level failures are counted and the
// loop moves on; a transport failure or cancellation stops the run and the
// partial summary is returned with the error.
func (s *Service) Run(ctx context.Context, records []record.Record) (Summary, error) {
	summary := Summary{StartedAt: s.Now()}
	keyProp := s.Mapping.KeyProperty()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = s.Now()
			return summary, err
		}

		uid := rec.UID()
		created, err := s.upsert(ctx, keyProp, rec)
		if err != nil {
			if isFatal(err) {
				s.Logger.Error("aborting sync", zap.String("uid", uid), zap.Error(err))
				summary.FinishedAt = s.Now()
				s.logSummary(summary)
				return summary, err
			}
			if errors.Is(err, record.ErrMissingUID) {
				s.Logger.Warn("skipping record without uid", zap.Any("record", map[string]any(rec)))
			} else {
				s.Logger.Error("error processing record", zap.String("uid", uid), zap.Error(err))
			}
			summary.Errors++
			summary.Failures = append(summary.Failures, Failure{UID: uid, Error: err.Error()})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}

		if s.Marker != nil {
			if err := s.Marker.MarkSynced(ctx, uid); err != nil {
				s.Logger.Warn("could not mark record synced", zap.String("uid", uid), zap.Error(err))
			}
		}
	}

	summary.FinishedAt = s.Now()
	s.logSummary(summary)
	return summary, nil
}

func (s *Service) upsert(ctx context.Context, keyProp string, rec record.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	uid := rec.UID()

	pageID, err := s.Pages.FindPageByUID(ctx, keyProp, uid)
	if err != nil {
		return false, fmt.Errorf("check existing page: %w", err)
	}

	if pageID != "" {
		s.Logger.Info("updating existing record", zap.String("uid", uid), zap.String("page_id", pageID))
		if err := s.Pages.UpdatePage(ctx, pageID, s.Mapping.UpdateProperties(rec)); err != nil {
			return false, fmt.Errorf("update page %s: %w", pageID, err)
		}
		return false, nil
	}

	s.Logger.Info("creating new record", zap.String("uid", uid))
	newID, err := s.Pages.CreatePage(ctx, s.Mapping.CreateProperties(rec))
	if err != nil {
		return false, fmt.Errorf("create page: %w", err)
	}
	s.Logger.Debug("created page", zap.String("uid", uid), zap.String("page_id", newID))
	return true, nil
}

func (s *Service) logSummary(summary Summary) {
	s.Logger.Info(fmt.Sprintf("Sync Summary: Created: %d, Updated: %d, Errors: %d",
		summary.Created, summary.Updated, summary.Errors))
}

func isFatal(err error) bool {
	return errors.Is(err, notion.ErrTransport) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
