package dose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

// DefaultMissedGrace is how long a pending dose may be overdue before it is
// considered missed.
const DefaultMissedGrace = 60 * time.Minute

var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type DoseService interface {
	List(ctx context.Context, principal *model.Principal, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error)
	Today(ctx context.Context, principal *model.Principal) ([]*model.DoseRecord, error)
	UpdateStatus(ctx context.Context, principal *model.Principal, id uuid.UUID, status string) (*model.DoseRecord, error)
	LogPRN(ctx context.Context, principal *model.Principal, medicationID uuid.UUID, takenAt *time.Time) (*model.DoseRecord, error)
	MarkMissed(ctx context.Context, principal *model.Principal) (int64, error)
	Details(ctx context.Context, principal *model.Principal, id uuid.UUID) (*model.DoseDetails, error)
}

type Config struct {
	MissedGrace time.Duration
	Location    *time.Location
}

type Service struct {
	doseRepo   repository.DoseRepository
	medRepo    repository.MedicationRepository
	clientRepo repository.ClientRepository
	issueRepo  repository.IssueRepository
	events     event.Recorder
	metrics    *metrics.Metrics
	grace      time.Duration
	loc        *time.Location
	now        func() time.Time
}

func NewService(
	doseRepo repository.DoseRepository,
	medRepo repository.MedicationRepository,
	clientRepo repository.ClientRepository,
	issueRepo repository.IssueRepository,
	events event.Recorder,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.MissedGrace <= 0 {
		cfg.MissedGrace = DefaultMissedGrace
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		doseRepo:   doseRepo,
		medRepo:    medRepo,
		clientRepo: clientRepo,
		issueRepo:  issueRepo,
		events:     events,
		metrics:    m,
		grace:      cfg.MissedGrace,
		loc:        cfg.Location,
		now:        time.Now,
	}
}

// List returns the client's doses scheduled in [from, to), oldest first.
// Zero bounds are open.
func (s *Service) List(ctx context.Context, principal *model.Principal, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(client.PharmacyID, client.ID) {
		return nil, errors.NotFound("client", nil)
	}
	if to.IsZero() {
		to = endOfTime
	}
	if !from.IsZero() && !to.After(from) {
		return nil, errors.BadRequest("from must be before to", nil)
	}
	return s.doseRepo.ListByClient(ctx, clientID, from, to)
}

// Today returns the calling client's doses between local midnights.
func (s *Service) Today(ctx context.Context, principal *model.Principal) ([]*model.DoseRecord, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	from := model.StartOfDay(s.now(), s.loc)
	return s.doseRepo.ListByClient(ctx, *principal.ClientID, from, from.AddDate(0, 0, 1))
}

func (s *Service) authorize(ctx context.Context, principal *model.Principal, id uuid.UUID) (*model.DoseRecord, error) {
	d, err := s.doseRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(d.PharmacyID, d.ClientID) {
		return nil, errors.NotFound("dose record", nil)
	}
	return d, nil
}

// UpdateStatus sets a dose's status. The medication's remaining-dose counter
// follows transitions into and out of taken.
func (s *Service) UpdateStatus(ctx context.Context, principal *model.Principal, id uuid.UUID, status string) (*model.DoseRecord, error) {
	if !model.ValidDoseStatus(status) {
		return nil, errors.BadRequest("invalid status", nil)
	}
	if _, err := s.authorize(ctx, principal, id); err != nil {
		return nil, err
	}

	var actual *time.Time
	if status == model.DoseStatusTaken {
		now := s.now()
		actual = &now
	}
	d, err := s.doseRepo.UpdateStatus(ctx, id, status, actual)
	if err != nil {
		return nil, fmt.Errorf("failed to update dose status: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DoseStatusChanges.WithLabelValues(status).Inc()
	}

	s.notify(ctx, d)
	return d, nil
}

// LogPRN records an as-needed dose as already taken.
func (s *Service) LogPRN(ctx context.Context, principal *model.Principal, medicationID uuid.UUID, takenAt *time.Time) (*model.DoseRecord, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	med, err := s.medRepo.Get(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	if med.ClientID != *principal.ClientID {
		return nil, errors.NotFound("medication", nil)
	}

	at := s.now()
	if takenAt != nil && !takenAt.IsZero() {
		at = *takenAt
	}
	d := &model.DoseRecord{
		MedicationID:  med.ID,
		PharmacyID:    med.PharmacyID,
		ClientID:      med.ClientID,
		ScheduledTime: at,
		ActualTime:    &at,
		Status:        model.DoseStatusTaken,
	}
	if err := s.doseRepo.CreateTaken(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to log dose: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DoseStatusChanges.WithLabelValues(model.DoseStatusTaken).Inc()
	}

	d.MedicationName, d.MedicationDosage = med.Name, med.Dosage
	s.notify(ctx, d)
	return d, nil
}

// MarkMissed skips the calling client's pending doses that are overdue by
// more than the grace period.
func (s *Service) MarkMissed(ctx context.Context, principal *model.Principal) (int64, error) {
	if !principal.IsClient() {
		return 0, errors.Forbidden("client access required")
	}
	return s.markMissed(ctx, principal.ClientID)
}

// MarkAllMissed is MarkMissed across every client.
func (s *Service) MarkAllMissed(ctx context.Context) (int64, error) {
	return s.markMissed(ctx, nil)
}

func (s *Service) markMissed(ctx context.Context, clientID *uuid.UUID) (int64, error) {
	cutoff := s.now().Add(-s.grace)
	n, err := s.doseRepo.MarkMissed(ctx, clientID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed doses: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if s.metrics != nil {
		s.metrics.MissedDosesMarked.Add(float64(n))
	}

	l := log.Info().Int64("count", n).Time("cutoff", cutoff)
	if clientID != nil {
		l = l.Str("client_id", clientID.String())
		event.Notify(ctx, s.events, model.EventDosesChanged, *clientID, map[string]int64{"missed": n},
			model.ClientTopic(*clientID))
	}
	l.Msg("Marked missed doses")
	return n, nil
}

// Details returns a dose with its medication and everything reported on it.
func (s *Service) Details(ctx context.Context, principal *model.Principal, id uuid.UUID) (*model.DoseDetails, error) {
	d, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	details := &model.DoseDetails{Dose: d, AdverseEvents: []*model.AdverseEvent{}}
	med, err := s.medRepo.Get(ctx, d.MedicationID)
	switch {
	case err == nil:
		details.Medication = med
	case !errors.Is(err, errors.ErrNotFound):
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}

	events, err := s.issueRepo.ListAdverseEventsByDose(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load adverse events: %w", err)
	}
	if events != nil {
		details.AdverseEvents = events
	}

	correction, err := s.issueRepo.GetCorrectionByDose(ctx, id)
	switch {
	case err == nil:
		details.Correction = correction
	case !errors.Is(err, errors.ErrNotFound):
		return nil, fmt.Errorf("failed to load correction: %w", err)
	}
	return details, nil
}

func (s *Service) notify(ctx context.Context, d *model.DoseRecord) {
	event.Notify(ctx, s.events, model.EventDosesChanged, d.ID, d,
		model.PharmacyTopic(d.PharmacyID), model.ClientTopic(d.ClientID))
}
