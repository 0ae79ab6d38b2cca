package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pills-bot/internal/metrics"
	"pills-bot/internal/records"
)

// ErrNoRecords means the user has nothing stored yet; not a failure.
var ErrNoRecords = errors.New("no records to report")

const filenameLayout = "20060102_150405"

// Fetcher reads a user's records in ascending order.
type Fetcher interface {
	FetchAll(ctx context.Context, userID int64) (records.UserRecordSet, error)
}

// Renderer serializes a document.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// Report is a rendered document ready to be sent.
type Report struct {
	Filename string
	Data     []byte
	Sections int
}

// Service wires fetch, assembly and rendering for one user.
type Service struct {
	store     Fetcher
	renderer  Renderer
	assembler Assembler
	metrics   metrics.Recorder
	now       func() time.Time
}

func NewService(store Fetcher, renderer Renderer, loc *time.Location, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		store:     store,
		renderer:  renderer,
		assembler: NewAssembler(loc),
		metrics:   rec,
		now:       time.Now,
	}
}

// Generate returns ErrNoRecords before building anything when the user has no records.
func (s *Service) Generate(ctx context.Context, userID int64) (*Report, error) {
	set, err := s.store.FetchAll(ctx, userID)
	if err != nil {
		s.metrics.RecordReport(metrics.OutcomeFetchError, 0)
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	if set.Empty() {
		s.metrics.RecordReport(metrics.OutcomeEmpty, 0)
		return nil, ErrNoRecords
	}

	started := time.Now()
	generatedAt := s.now().In(s.assembler.location())
	doc := s.assembler.Assemble(set)
	doc.GeneratedAt = generatedAt

	data, err := s.render(doc)
	if err != nil {
		s.metrics.RecordReport(metrics.OutcomeRenderError, 0)
		return nil, fmt.Errorf("render report: %w", err)
	}
	s.metrics.RecordReport(metrics.OutcomeOK, time.Since(started))

	return &Report{
		Filename: Filename(generatedAt),
		Data:     data,
		Sections: len(doc.Sections),
	}, nil
}

// render converts renderer panics into errors so one bad document cannot take down the bot.
func (s *Service) render(doc Document) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return s.renderer.Render(doc)
}

// Filename is pills_report_YYYYMMDD_HHMMSS.pdf for the generation time.
func Filename(t time.Time) string {
	return "pills_report_" + t.Format(filenameLayout) + ".pdf"
}
