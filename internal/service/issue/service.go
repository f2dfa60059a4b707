package issue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

var (
	correctionTypes = map[string]bool{
		"double_dose": true, "wrong_medication": true, "wrong_time": true, "missed_then_taken": true, "other": true,
	}
	eventTypes = map[string]bool{
		"symptom": true, "side_effect": true, "allergic_reaction": true, "other": true,
	}
	severities = map[string]bool{"mild": true, "moderate": true, "severe": true}
)

type IssueService interface {
	ReportCorrection(ctx context.Context, principal *model.Principal, doseID uuid.UUID, req *model.ReportCorrectionRequest) (*model.DoseCorrection, error)
	ReportAdverseEvent(ctx context.Context, principal *model.Principal, doseID *uuid.UUID, req *model.ReportAdverseEventRequest) (*model.AdverseEvent, error)
	List(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.ClientIssues, error)
}

type Service struct {
	issueRepo  repository.IssueRepository
	doseRepo   repository.DoseRepository
	medRepo    repository.MedicationRepository
	clientRepo repository.ClientRepository
	events     event.Recorder
	now        func() time.Time
}

func NewService(
	issueRepo repository.IssueRepository,
	doseRepo repository.DoseRepository,
	medRepo repository.MedicationRepository,
	clientRepo repository.ClientRepository,
	events event.Recorder,
) *Service {
	return &Service{
		issueRepo:  issueRepo,
		doseRepo:   doseRepo,
		medRepo:    medRepo,
		clientRepo: clientRepo,
		events:     events,
		now:        time.Now,
	}
}

func (s *Service) ownDose(ctx context.Context, principal *model.Principal, doseID uuid.UUID) (*model.DoseRecord, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	d, err := s.doseRepo.Get(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if d.ClientID != *principal.ClientID {
		return nil, errors.NotFound("dose record", nil)
	}
	return d, nil
}

// ReportCorrection records a mistake on one of the client's doses and flags
// the dose.
func (s *Service) ReportCorrection(ctx context.Context, principal *model.Principal, doseID uuid.UUID, req *model.ReportCorrectionRequest) (*model.DoseCorrection, error) {
	if !correctionTypes[req.CorrectionType] {
		return nil, errors.BadRequest("invalid correction type", nil)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, errors.BadRequest("description is required", nil)
	}
	d, err := s.ownDose(ctx, principal, doseID)
	if err != nil {
		return nil, err
	}

	c := &model.DoseCorrection{
		OriginalDoseID: d.ID,
		ClientID:       d.ClientID,
		MedicationID:   d.MedicationID,
		PharmacyID:     d.PharmacyID,
		CorrectionType: req.CorrectionType,
		Description:    description,
	}
	if err := s.issueRepo.CreateCorrection(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create correction: %w", err)
	}

	log.Info().
		Str("dose_id", d.ID.String()).
		Str("correction_type", c.CorrectionType).
		Msg("Dose correction reported")
	event.Notify(ctx, s.events, model.EventDosesChanged, d.ID, c,
		model.PharmacyTopic(d.PharmacyID), model.ClientTopic(d.ClientID))
	return c, nil
}

// ReportAdverseEvent records a reaction, optionally tied to a dose. With a
// dose the medication is taken from it and the dose is flagged.
func (s *Service) ReportAdverseEvent(ctx context.Context, principal *model.Principal, doseID *uuid.UUID, req *model.ReportAdverseEventRequest) (*model.AdverseEvent, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	if !eventTypes[req.EventType] {
		return nil, errors.BadRequest("invalid event type", nil)
	}
	if !severities[req.Severity] {
		return nil, errors.BadRequest("invalid severity", nil)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, errors.BadRequest("description is required", nil)
	}

	client, err := s.clientRepo.Get(ctx, *principal.ClientID)
	if err != nil {
		return nil, err
	}

	e := &model.AdverseEvent{
		ClientID:    client.ID,
		PharmacyID:  client.PharmacyID,
		EventType:   req.EventType,
		Severity:    req.Severity,
		Description: description,
		OccurredAt:  s.now(),
	}
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		e.OccurredAt = *req.OccurredAt
	}

	switch {
	case doseID != nil:
		d, err := s.ownDose(ctx, principal, *doseID)
		if err != nil {
			return nil, err
		}
		e.DoseRecordID = &d.ID
		e.MedicationID = &d.MedicationID
	case req.MedicationID != nil:
		med, err := s.medRepo.Get(ctx, *req.MedicationID)
		if err != nil {
			return nil, err
		}
		if med.ClientID != client.ID {
			return nil, errors.NotFound("medication", nil)
		}
		e.MedicationID = &med.ID
	}

	if err := s.issueRepo.CreateAdverseEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create adverse event: %w", err)
	}

	log.Info().
		Str("client_id", client.ID.String()).
		Str("severity", e.Severity).
		Msg("Adverse event reported")
	resourceID := e.ID
	if e.DoseRecordID != nil {
		resourceID = *e.DoseRecordID
	}
	event.Notify(ctx, s.events, model.EventDosesChanged, resourceID, e,
		model.PharmacyTopic(client.PharmacyID), model.ClientTopic(client.ID))
	return e, nil
}

// List returns everything the client reported, newest first, along with the
// medications those reports reference.
func (s *Service) List(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.ClientIssues, error) {
	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(client.PharmacyID, client.ID) {
		return nil, errors.NotFound("client", nil)
	}

	events, err := s.issueRepo.ListAdverseEventsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adverse events: %w", err)
	}
	corrections, err := s.issueRepo.ListCorrectionsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	meds, err := s.medRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	byID := make(map[uuid.UUID]*model.Medication, len(meds))
	for _, m := range meds {
		byID[m.ID] = m
	}
	referenced := make(map[uuid.UUID]*model.Medication)
	for _, e := range events {
		if e.MedicationID != nil {
			if m, ok := byID[*e.MedicationID]; ok {
				referenced[m.ID] = m
			}
		}
	}
	for _, c := range corrections {
		if m, ok := byID[c.MedicationID]; ok {
			referenced[m.ID] = m
		}
	}

	out := &model.ClientIssues{
		AdverseEvents: events,
		Corrections:   corrections,
		Medications:   referenced,
	}
	if out.AdverseEvents == nil {
		out.AdverseEvents = []*model.AdverseEvent{}
	}
	if out.Corrections == nil {
		out.Corrections = []*model.DoseCorrection{}
	}
	return out, nil
}
