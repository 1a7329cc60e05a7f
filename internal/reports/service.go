package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/userctx"
	"github.com/google/uuid"
)

// Service exports the active meal plan into downloadable reports
type Service struct {
	reportsStorage storage.ReportsStorage
	plansStorage   storage.MealPlansStorage
	generator      *Generator
	blobStore      blob.Store
	maxPerUser     int
	presignTTL     int
	localMode      bool // true when blobStore keeps objects in process
}

// NewService creates a new reports service
func NewService(
	reportsStorage storage.ReportsStorage,
	plansStorage storage.MealPlansStorage,
	blobStore blob.Store,
	maxPerUser int,
	presignTTL int,
) *Service {
	_, localMode := blobStore.(*blob.MemoryStore)

	return &Service{
		reportsStorage: reportsStorage,
		plansStorage:   plansStorage,
		generator:      NewGenerator(),
		blobStore:      blobStore,
		maxPerUser:     maxPerUser,
		presignTTL:     presignTTL,
		localMode:      localMode,
	}
}

// LocalMode reports whether downloads are served by the API itself
func (s *Service) LocalMode() bool {
	return s.localMode
}

// CreateReport exports the caller's active plan
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != FormatPDF && format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	owner := userctx.UserIDOrDefault(ctx)

	if s.maxPerUser > 0 {
		existing, err := s.reportsStorage.ListReports(ctx, owner, s.maxPerUser, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to count reports: %w", err)
		}
		if len(existing) >= s.maxPerUser {
			return nil, ErrTooManyReports
		}
	}

	plan, items, found, err := s.plansStorage.GetActive(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load active plan: %w", err)
	}
	if !found {
		return nil, ErrNoActivePlan
	}

	data, err := s.generator.Generate(format, plan, items)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	objectKey := fmt.Sprintf("exports/%s/%s_%s.%s", owner, plan.ID, uuid.New().String(), format)

	report := &storage.ReportMeta{
		OwnerUserID: owner,
		PlanID:      plan.ID,
		Format:      format,
		ObjectKey:   &objectKey,
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
	}

	if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentTypeFor(format)); err != nil {
		msg := err.Error()
		report.Status = StatusFailed
		report.Error = &msg
		report.ObjectKey = nil
		log.Printf("WARNING: report upload failed: owner=%s plan=%s err=%v", owner, plan.ID, err)
	}

	if err := s.reportsStorage.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report metadata: %w", err)
	}

	return toReport(report), nil
}

// GetReport retrieves a report owned by the caller
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	meta, err := s.ownedReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReport(meta), nil
}

// ListReports lists the caller's reports, newest first
func (s *Service) ListReports(ctx context.Context, limit, offset int) ([]Report, error) {
	metaList, err := s.reportsStorage.ListReports(ctx, userctx.UserIDOrDefault(ctx), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]Report, len(metaList))
	for i := range metaList {
		reports[i] = *toReport(&metaList[i])
	}

	return reports, nil
}

// DeleteReport deletes a report and its stored object
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	meta, err := s.ownedReport(ctx, id)
	if err != nil {
		return err
	}

	if meta.ObjectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			// metadata deletion still proceeds
			log.Printf("WARNING: failed to delete report object %s: %v", *meta.ObjectKey, err)
		}
	}

	if err := s.reportsStorage.DeleteReport(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("failed to delete report metadata: %w", err)
	}

	return nil
}

// GetReportDownloadURL returns where the client fetches the file from
func (s *Service) GetReportDownloadURL(ctx context.Context, report *Report, baseURL string) (string, error) {
	if report.ObjectKey == nil {
		return "", ErrReportUnavailable
	}

	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), report.ID.String()), nil
	}

	presignedURL, err := s.blobStore.PresignGet(ctx, *report.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL, nil
}

// GetReportData fetches the report body from the blob store
func (s *Service) GetReportData(ctx context.Context, report *Report) ([]byte, string, error) {
	if report.ObjectKey == nil {
		return nil, "", ErrReportUnavailable
	}

	data, err := s.blobStore.GetObject(ctx, *report.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, "", ErrReportUnavailable
		}
		return nil, "", fmt.Errorf("failed to read report object: %w", err)
	}

	return data, contentTypeFor(report.Format), nil
}

func (s *Service) ownedReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	meta, err := s.reportsStorage.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if meta.OwnerUserID != userctx.UserIDOrDefault(ctx) {
		return nil, ErrReportNotFound
	}
	return meta, nil
}

func toReport(meta *storage.ReportMeta) *Report {
	return &Report{
		ID:          meta.ID,
		OwnerUserID: meta.OwnerUserID,
		PlanID:      meta.PlanID,
		Format:      meta.Format,
		ObjectKey:   meta.ObjectKey,
		SizeBytes:   meta.SizeBytes,
		Status:      meta.Status,
		Error:       meta.Error,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}
}

// Errors
var (
	ErrInvalidFormat     = errors.New("invalid format")
	ErrNoActivePlan      = errors.New("no active meal plan")
	ErrTooManyReports    = errors.New("too many reports")
	ErrReportNotFound    = errors.New("report not found")
	ErrReportUnavailable = errors.New("report file unavailable")
)
