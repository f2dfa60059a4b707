package medication

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/schedule"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

const (
	dateLayout  = "2006-01-02"
	defaultUnit = "mg"
)

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	dosageUnit = regexp.MustCompile(`(?i)mg|g|ml|comprimido|cápsula`)
)

type MedicationService interface {
	CreateForClient(ctx context.Context, pharmacyID, clientID uuid.UUID, req *model.PrescribeMedicationRequest) (*model.Medication, error)
	CreateSelf(ctx context.Context, principal *model.Principal, req *model.SelfMedicationRequest) (*model.Medication, error)
	List(ctx context.Context, principal *model.Principal, clientID uuid.UUID) ([]*model.Medication, error)
	Update(ctx context.Context, principal *model.Principal, id uuid.UUID, req *model.UpdateMedicationRequest) (*model.Medication, error)
	Deactivate(ctx context.Context, principal *model.Principal, id uuid.UUID) error
	Delete(ctx context.Context, principal *model.Principal, id uuid.UUID) error
}

type Service struct {
	medRepo    repository.MedicationRepository
	clientRepo repository.ClientRepository
	events     event.Recorder
	metrics    *metrics.Metrics
	loc        *time.Location
	now        func() time.Time
}

func NewService(
	medRepo repository.MedicationRepository,
	clientRepo repository.ClientRepository,
	events event.Recorder,
	m *metrics.Metrics,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		medRepo:    medRepo,
		clientRepo: clientRepo,
		events:     events,
		metrics:    m,
		loc:        loc,
		now:        time.Now,
	}
}

// CreateForClient is the pharmacy prescribing form.
func (s *Service) CreateForClient(ctx context.Context, pharmacyID, clientID uuid.UUID, req *model.PrescribeMedicationRequest) (*model.Medication, error) {
	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.PharmacyID != pharmacyID {
		return nil, errors.NotFound("client", nil)
	}

	dosage := strings.TrimSpace(req.Dosage)
	if dosage == "" {
		return nil, errors.BadRequest("dosage is required", nil)
	}
	if !digitsOnly.MatchString(dosage) {
		return nil, errors.BadRequest("dosage must contain only digits", nil)
	}
	unit := strings.TrimSpace(req.DosageUnit)
	if unit == "" {
		unit = defaultUnit
	}

	recurrence := req.RecurrenceType
	if recurrence == "" {
		recurrence = model.RecurrenceContinuous
	}
	if recurrence != model.RecurrenceContinuous && recurrence != model.RecurrenceCustom {
		return nil, errors.BadRequest("invalid recurrence type", nil)
	}
	customDates, err := schedule.ParseDates(strings.Join(req.CustomDates, ","))
	if err != nil {
		return nil, errors.BadRequest(err.Error(), err)
	}

	med := &model.Medication{
		PharmacyID:            pharmacyID,
		ClientID:              clientID,
		Name:                  strings.TrimSpace(req.Name),
		Dosage:                dosage + unit,
		TotalQuantity:         req.TotalQuantity,
		TreatmentDurationDays: req.TreatmentDurationDays,
		Notes:                 optional(req.Notes),
		IsActive:              true,
		RecurrenceType:        recurrence,
	}
	if recurrence == model.RecurrenceCustom {
		med.RecurrenceCustomDates = schedule.Join(customDates)
	}
	if err := s.prepare(med, req.Schedules, req.StartDate); err != nil {
		return nil, err
	}
	return s.create(ctx, med)
}

// CreateSelf is the form a client uses to add their own medication.
func (s *Service) CreateSelf(ctx context.Context, principal *model.Principal, req *model.SelfMedicationRequest) (*model.Medication, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	client, err := s.clientRepo.Get(ctx, *principal.ClientID)
	if err != nil {
		return nil, err
	}

	dosage := strings.TrimSpace(req.Dosage)
	if dosage == "" {
		return nil, errors.BadRequest("dosage is required", nil)
	}
	if !dosageUnit.MatchString(dosage) {
		dosage += defaultUnit
	}

	med := &model.Medication{
		PharmacyID:            client.PharmacyID,
		ClientID:              client.ID,
		Name:                  strings.TrimSpace(req.Name),
		Dosage:                dosage,
		TotalQuantity:         req.TotalQuantity,
		TreatmentDurationDays: req.TreatmentDurationDays,
		Notes:                 optional(req.Notes),
		IsActive:              true,
		RecurrenceType:        model.RecurrenceContinuous,
	}
	if err := s.prepare(med, req.Schedules, req.StartDate); err != nil {
		return nil, err
	}
	return s.create(ctx, med)
}

// prepare validates the fields shared by both forms and fills in the
// schedule, start date and remaining-dose counter.
func (s *Service) prepare(med *model.Medication, schedules []string, startDate string) error {
	if med.Name == "" {
		return errors.BadRequest("name is required", nil)
	}

	times, err := schedule.ParseTimes(strings.Join(schedules, ","))
	if err != nil {
		return errors.BadRequest(err.Error(), err)
	}
	med.Schedules = schedule.Join(times)
	if len(times) == 0 && !schedule.IsPRN(med) {
		return errors.BadRequest("at least one schedule is required", nil)
	}
	if med.TreatmentDurationDays < 1 {
		return errors.BadRequest("treatment duration must be at least 1 day", nil)
	}

	if startDate = strings.TrimSpace(startDate); startDate != "" {
		t, err := time.ParseInLocation(dateLayout, startDate, s.loc)
		if err != nil {
			return errors.BadRequest("invalid start date", err)
		}
		med.StartDate = t
	} else {
		med.StartDate = model.StartOfDay(s.now(), s.loc)
	}

	if med.TotalQuantity != nil {
		if *med.TotalQuantity < 0 {
			return errors.BadRequest("total quantity must not be negative", nil)
		}
		remaining := *med.TotalQuantity
		med.RemainingDoses = &remaining
	}
	return nil
}

func (s *Service) create(ctx context.Context, med *model.Medication) (*model.Medication, error) {
	med.ID = uuid.New()
	doses, err := schedule.Generate(med, s.loc)
	if err != nil {
		return nil, errors.BadRequest(err.Error(), err)
	}
	if err := s.medRepo.CreateWithDoses(ctx, med, doses); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DosesGenerated.Add(float64(len(doses)))
	}

	log.Info().
		Str("medication_id", med.ID.String()).
		Str("client_id", med.ClientID.String()).
		Int("doses", len(doses)).
		Msg("Medication created")
	s.notify(ctx, med)
	return med, nil
}

// List returns the client's medications, newest first.
func (s *Service) List(ctx context.Context, principal *model.Principal, clientID uuid.UUID) ([]*model.Medication, error) {
	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(client.PharmacyID, client.ID) {
		return nil, errors.NotFound("client", nil)
	}
	return s.medRepo.ListByClient(ctx, clientID)
}

func (s *Service) authorize(ctx context.Context, principal *model.Principal, id uuid.UUID) (*model.Medication, error) {
	med, err := s.medRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(med.PharmacyID, med.ClientID) {
		return nil, errors.NotFound("medication", nil)
	}
	return med, nil
}

// Update edits a medication. A schedule change replaces the pending doses
// after now with ones generated from the new schedule.
func (s *Service) Update(ctx context.Context, principal *model.Principal, id uuid.UUID, req *model.UpdateMedicationRequest) (*model.Medication, error) {
	med, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	dosage := strings.TrimSpace(req.Dosage)
	if name == "" {
		return nil, errors.BadRequest("name is required", nil)
	}
	if dosage == "" {
		return nil, errors.BadRequest("dosage is required", nil)
	}
	times, err := schedule.ParseTimes(strings.Join(req.Schedules, ","))
	if err != nil {
		return nil, errors.BadRequest(err.Error(), err)
	}
	if len(times) == 0 && !schedule.IsPRN(med) {
		return nil, errors.BadRequest("at least one schedule is required", nil)
	}

	newSchedules := schedule.Join(times)
	changed := newSchedules != med.Schedules
	med.Name = name
	med.Dosage = dosage
	med.Schedules = newSchedules
	if req.Notes != nil {
		med.Notes = optional(*req.Notes)
	}

	var doses []*model.DoseRecord
	now := s.now()
	if changed && med.IsActive {
		doses, err = schedule.Regenerate(med, now, s.loc)
		if err != nil {
			return nil, errors.BadRequest(err.Error(), err)
		}
		if doses == nil {
			doses = []*model.DoseRecord{}
		}
	}
	if err := s.medRepo.Update(ctx, med, now, doses); err != nil {
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}
	if s.metrics != nil && len(doses) > 0 {
		s.metrics.DosesGenerated.Add(float64(len(doses)))
	}

	s.notify(ctx, med)
	return med, nil
}

// Deactivate stops a medication; its future pending doses are removed.
func (s *Service) Deactivate(ctx context.Context, principal *model.Principal, id uuid.UUID) error {
	med, err := s.authorize(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.medRepo.Deactivate(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}
	med.IsActive = false
	s.notify(ctx, med)
	return nil
}

// Delete removes a client's own medication together with its doses.
func (s *Service) Delete(ctx context.Context, principal *model.Principal, id uuid.UUID) error {
	med, err := s.authorize(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.medRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	log.Info().Str("medication_id", id.String()).Msg("Medication deleted")
	event.Notify(ctx, s.events, model.EventMedicationsChanged, id, nil,
		model.PharmacyTopic(med.PharmacyID), model.ClientTopic(med.ClientID))
	return nil
}

func (s *Service) notify(ctx context.Context, med *model.Medication) {
	event.Notify(ctx, s.events, model.EventMedicationsChanged, med.ID, med,
		model.PharmacyTopic(med.PharmacyID), model.ClientTopic(med.ClientID))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
