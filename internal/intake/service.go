// Package intake accepts anonymous incident reports, typed or
// dictated, and fans them out to storage and downstream notification.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"community-intake-service/internal/audio"
	"community-intake-service/internal/notify"
	"community-intake-service/internal/observability/metrics"
	"community-intake-service/internal/pipeline"
	"community-intake-service/internal/store"
)

// ErrEmptyDescription - the report carries no description after
// trimming. Rejected before any side effect.
var ErrEmptyDescription = errors.New("empty description")

const titleMaxRunes = 60

// Transcriber converts raw WAV audio to a transcript. Satisfied by
// *pipeline.Pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, raw []byte, languageTag string) (*pipeline.Transcript, error)
}

// Submission is a typed incident report as received from a citizen.
type Submission struct {
	Title        string
	Description  string
	Location     string
	IncidentTime string
}

// VoiceSubmission is a dictated incident report. The WAV payload is
// transcribed and the transcript becomes the description.
type VoiceSubmission struct {
	SessionID    string
	WAV          []byte
	LanguageTag  string
	Location     string
	IncidentTime string
}

// Receipt confirms an accepted report. NotifyWarning carries a
// notifier delivery failure; the report is persisted either way.
// Transcript is set only for voice submissions.
type Receipt struct {
	ReportID      int64
	Notified      bool
	NotifyWarning error
	Transcript    string
}

// Service is the report intake front door.
type Service struct {
	store    store.DataStore
	notifier notify.Notifier
	pipeline Transcriber
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewService creates an intake service. pipe may be nil when voice
// submission is not configured; Submit is unaffected.
func NewService(st store.DataStore, n notify.Notifier, pipe Transcriber, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		notifier: n,
		pipeline: pipe,
		log:      log.With().Str("component", "intake").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// Submit validates, persists, and announces one incident report.
//
// The notifier runs after the write and its failure is a warning, not
// an error: a report that reached storage is never rolled back because
// downstream delivery hiccupped. Notified flips to true only after the
// notifier confirms delivery.
func (s *Service) Submit(ctx context.Context, in Submission) (*Receipt, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		s.metrics.ReportsRejected.Inc()
		return nil, ErrEmptyDescription
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = deriveTitle(description)
	}

	report := &store.IncidentReport{
		Title:        title,
		Description:  description,
		Location:     strings.TrimSpace(in.Location),
		IncidentTime: strings.TrimSpace(in.IncidentTime),
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("%w: create report: %v", store.ErrPersistence, err)
	}
	report.ID = id
	s.metrics.ReportsSubmitted.Inc()

	receipt := &Receipt{ReportID: id}

	err = s.notifier.NotifyReport(ctx, notify.ReportNotification{
		ReportID:     id,
		Title:        report.Title,
		Description:  report.Description,
		Location:     report.Location,
		IncidentTime: report.IncidentTime,
		CreatedAt:    report.CreatedAt,
	})
	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("reportId", id).
			Msg("report persisted but notification failed")
		receipt.NotifyWarning = err
		return receipt, nil
	}

	if err := s.store.MarkReportNotified(ctx, id); err != nil {
		// The notification went out; losing the flag is recoverable.
		s.log.Warn().
			Err(err).
			Int64("reportId", id).
			Msg("failed to mark report notified")
		receipt.NotifyWarning = err
		return receipt, nil
	}
	receipt.Notified = true

	s.log.Info().
		Int64("reportId", id).
		Msg("incident report submitted")
	return receipt, nil
}

// SubmitVoice transcribes a dictated report and submits the transcript
// as its description. The source audio is archived with the transcript
// best-effort; an archive failure never fails the submission.
func (s *Service) SubmitVoice(ctx context.Context, in VoiceSubmission) (*Receipt, error) {
	if s.pipeline == nil {
		return nil, errors.New("intake: voice submission not configured")
	}

	tr, err := s.pipeline.Transcribe(ctx, in.WAV, in.LanguageTag)
	if err != nil {
		return nil, err
	}

	archive := &store.AudioArchive{
		SessionID:  in.SessionID,
		Audio:      in.WAV,
		Transcript: tr.FullText,
		CreatedAt:  time.Now().UTC(),
	}
	if buf, err := audio.ParseWAV(in.WAV); err == nil {
		archive.DurationSeconds = buf.Duration.Seconds()
	}
	if _, err := s.store.SaveAudioArchive(ctx, archive); err != nil {
		s.log.Warn().
			Err(err).
			Str("sessionId", in.SessionID).
			Msg("failed to archive voice submission audio")
	}

	receipt, err := s.Submit(ctx, Submission{
		Description:  tr.FullText,
		Location:     in.Location,
		IncidentTime: in.IncidentTime,
	})
	if err != nil {
		return nil, err
	}
	receipt.Transcript = tr.FullText
	return receipt, nil
}

// deriveTitle takes the leading words of the description, capped at
// titleMaxRunes runes.
func deriveTitle(description string) string {
	if line, _, found := strings.Cut(description, "\n"); found {
		description = line
	}
	runes := []rune(description)
	if len(runes) <= titleMaxRunes {
		return strings.TrimSpace(description)
	}
	title := string(runes[:titleMaxRunes])
	if i := strings.LastIndex(title, " "); i > 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title) + "..."
}
