package vitals

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

const historyLimit = 100

const (
	FilterAll     = "all"
	FilterBP      = "bp"
	FilterGlucose = "glucose"

	RangeAll   = "all"
	RangeWeek  = "week"
	RangeMonth = "month"
)

// Blood pressure labels.
const (
	BPNormal   = "normal"
	BPElevated = "elevated"
	BPStage1   = "hypertension_stage_1"
	BPStage2   = "hypertension_stage_2"
	BPCrisis   = "hypertensive_crisis"
)

// Glucose labels.
const (
	GlucoseLow      = "low"
	GlucoseNormal   = "normal"
	GlucosePre      = "prediabetes"
	GlucoseDiabetes = "diabetes"
	GlucoseHigh     = "high"
)

// ClassifyBP applies the thresholds in order; the first match wins.
func ClassifyBP(systolic, diastolic int) string {
	switch {
	case systolic < 120 && diastolic < 80:
		return BPNormal
	case systolic < 130 && diastolic < 80:
		return BPElevated
	case systolic < 140 || diastolic < 90:
		return BPStage1
	case systolic < 180 || diastolic < 120:
		return BPStage2
	}
	return BPCrisis
}

func ClassifyGlucose(value int) string {
	switch {
	case value < 70:
		return GlucoseLow
	case value <= 99:
		return GlucoseNormal
	case value <= 125:
		return GlucosePre
	case value <= 199:
		return GlucoseDiabetes
	}
	return GlucoseHigh
}

type VitalsService interface {
	Add(ctx context.Context, principal *model.Principal, clientID uuid.UUID, req *model.AddVitalSignRequest) (*model.VitalReading, error)
	List(ctx context.Context, principal *model.Principal, clientID uuid.UUID, filter, timeRange string) (*model.VitalHistory, error)
	Delete(ctx context.Context, principal *model.Principal, id uuid.UUID) error
}

type Service struct {
	vitalsRepo repository.VitalsRepository
	clientRepo repository.ClientRepository
	now        func() time.Time
}

func NewService(vitalsRepo repository.VitalsRepository, clientRepo repository.ClientRepository) *Service {
	return &Service{vitalsRepo: vitalsRepo, clientRepo: clientRepo, now: time.Now}
}

func (s *Service) client(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.Client, error) {
	c, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(c.PharmacyID, c.ID) {
		return nil, errors.NotFound("client", nil)
	}
	return c, nil
}

func validate(req *model.AddVitalSignRequest) error {
	hasSys, hasDia := req.Systolic != nil, req.Diastolic != nil
	if hasSys != hasDia {
		return errors.BadRequest("blood pressure needs both systolic and diastolic", nil)
	}
	if !hasSys && req.Glucose == nil {
		return errors.BadRequest("blood pressure or glucose is required", nil)
	}
	if hasSys {
		if *req.Systolic < 50 || *req.Systolic > 300 {
			return errors.BadRequest("systolic must be between 50 and 300", nil)
		}
		if *req.Diastolic < 30 || *req.Diastolic > 200 {
			return errors.BadRequest("diastolic must be between 30 and 200", nil)
		}
	}
	if req.Glucose != nil && (*req.Glucose < 20 || *req.Glucose > 600) {
		return errors.BadRequest("glucose must be between 20 and 600", nil)
	}
	return nil
}

func (s *Service) Add(ctx context.Context, principal *model.Principal, clientID uuid.UUID, req *model.AddVitalSignRequest) (*model.VitalReading, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	c, err := s.client(ctx, principal, clientID)
	if err != nil {
		return nil, err
	}

	v := &model.VitalSign{
		ClientID:   c.ID,
		PharmacyID: c.PharmacyID,
		MeasuredAt: s.now(),
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		Glucose:    req.Glucose,
	}
	if req.MeasuredAt != nil && !req.MeasuredAt.IsZero() {
		v.MeasuredAt = *req.MeasuredAt
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		v.Notes = &notes
	}
	if err := s.vitalsRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vital sign: %w", err)
	}
	return reading(v), nil
}

// List returns the newest readings in the time range, narrowed by filter,
// and the averages over the whole range.
func (s *Service) List(ctx context.Context, principal *model.Principal, clientID uuid.UUID, filter, timeRange string) (*model.VitalHistory, error) {
	if filter == "" {
		filter = FilterAll
	}
	if filter != FilterAll && filter != FilterBP && filter != FilterGlucose {
		return nil, errors.BadRequest("invalid filter", nil)
	}
	var since time.Time
	switch timeRange {
	case "", RangeAll:
	case RangeWeek:
		since = s.now().AddDate(0, 0, -7)
	case RangeMonth:
		since = s.now().AddDate(0, 0, -30)
	default:
		return nil, errors.BadRequest("invalid range", nil)
	}

	if _, err := s.client(ctx, principal, clientID); err != nil {
		return nil, err
	}
	signs, err := s.vitalsRepo.List(ctx, clientID, since, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list vital signs: %w", err)
	}

	history := &model.VitalHistory{Readings: []*model.VitalReading{}, Averages: averages(signs)}
	for _, v := range signs {
		if filter == FilterBP && !v.HasBP() {
			continue
		}
		if filter == FilterGlucose && v.Glucose == nil {
			continue
		}
		history.Readings = append(history.Readings, reading(v))
	}
	return history, nil
}

func (s *Service) Delete(ctx context.Context, principal *model.Principal, id uuid.UUID) error {
	v, err := s.vitalsRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !principal.CanAccess(v.PharmacyID, v.ClientID) {
		return errors.NotFound("vital sign", nil)
	}
	return s.vitalsRepo.Delete(ctx, id)
}

func reading(v *model.VitalSign) *model.VitalReading {
	r := &model.VitalReading{VitalSign: v}
	if v.HasBP() {
		r.BPClass = ClassifyBP(*v.Systolic, *v.Diastolic)
	}
	if v.Glucose != nil {
		r.GlucoseClass = ClassifyGlucose(*v.Glucose)
	}
	return r
}

func averages(signs []*model.VitalSign) model.VitalAverages {
	var sys, dia, glu int
	var out model.VitalAverages
	for _, v := range signs {
		if v.HasBP() {
			sys += *v.Systolic
			dia += *v.Diastolic
			out.BPCount++
		}
		if v.Glucose != nil {
			glu += *v.Glucose
			out.GlucoseCount++
		}
	}
	if out.BPCount > 0 {
		out.Systolic = roundAvg(sys, out.BPCount)
		out.Diastolic = roundAvg(dia, out.BPCount)
	}
	if out.GlucoseCount > 0 {
		out.Glucose = roundAvg(glu, out.GlucoseCount)
	}
	return out
}

func roundAvg(sum, n int) *int {
	v := int(math.Round(float64(sum) / float64(n)))
	return &v
}
