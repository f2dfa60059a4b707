package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

// ---- issues

type issueRepo struct{ db *DB }

func (r *issueRepo) CreateCorrection(_ context.Context, c *model.DoseCorrection) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.doses[c.OriginalDoseID]
	if !ok {
		return errors.NotFound("dose record", nil)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.db.stamp(&c.CreatedAt, nil)
	cp := *c
	r.db.corrections[cp.ID] = &cp
	d.HasCorrection = true
	r.db.stamp(nil, &d.UpdatedAt)
	return nil
}

func (r *issueRepo) CreateAdverseEvent(_ context.Context, e *model.AdverseEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if e.DoseRecordID != nil {
		d, ok := r.db.doses[*e.DoseRecordID]
		if !ok {
			return errors.NotFound("dose record", nil)
		}
		d.HasAdverseEvent = true
		r.db.stamp(nil, &d.UpdatedAt)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.db.stamp(&e.CreatedAt, nil)
	cp := *e
	r.db.events[cp.ID] = &cp
	return nil
}

func (r *issueRepo) events(match func(*model.AdverseEvent) bool) []*model.AdverseEvent {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.AdverseEvent
	for _, e := range r.db.events {
		if match(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out
}

func (r *issueRepo) ListAdverseEventsByClient(_ context.Context, clientID uuid.UUID) ([]*model.AdverseEvent, error) {
	return r.events(func(e *model.AdverseEvent) bool { return e.ClientID == clientID }), nil
}

func (r *issueRepo) ListAdverseEventsByDose(_ context.Context, doseID uuid.UUID) ([]*model.AdverseEvent, error) {
	return r.events(func(e *model.AdverseEvent) bool {
		return e.DoseRecordID != nil && *e.DoseRecordID == doseID
	}), nil
}

func (r *issueRepo) ListCorrectionsByClient(_ context.Context, clientID uuid.UUID) ([]*model.DoseCorrection, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.DoseCorrection
	for _, c := range r.db.corrections {
		if c.ClientID == clientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *issueRepo) GetCorrectionByDose(_ context.Context, doseID uuid.UUID) (*model.DoseCorrection, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var latest *model.DoseCorrection
	for _, c := range r.db.corrections {
		if c.OriginalDoseID == doseID && (latest == nil || c.CreatedAt.After(latest.CreatedAt)) {
			latest = c
		}
	}
	if latest == nil {
		return nil, errors.NotFound("dose correction", nil)
	}
	out := *latest
	return &out, nil
}

// ---- vitals

type vitalsRepo struct{ db *DB }

func (r *vitalsRepo) Create(_ context.Context, v *model.VitalSign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.db.stamp(&v.CreatedAt, nil)
	cp := *v
	r.db.vitals[cp.ID] = &cp
	return nil
}

func (r *vitalsRepo) Get(_ context.Context, id uuid.UUID) (*model.VitalSign, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	v, ok := r.db.vitals[id]
	if !ok {
		return nil, errors.NotFound("vital sign", nil)
	}
	out := *v
	return &out, nil
}

func (r *vitalsRepo) List(_ context.Context, clientID uuid.UUID, since time.Time, limit int) ([]*model.VitalSign, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.VitalSign
	for _, v := range r.db.vitals {
		if v.ClientID != clientID || (!since.IsZero() && v.MeasuredAt.Before(since)) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *vitalsRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.vitals[id]; !ok {
		return errors.NotFound("vital sign", nil)
	}
	delete(r.db.vitals, id)
	return nil
}

// ---- ads

type adRepo struct{ db *DB }

func (r *adRepo) Create(_ context.Context, ad *model.PharmacyAd) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ad.ID == uuid.Nil {
		ad.ID = uuid.New()
	}
	r.db.stamp(&ad.CreatedAt, &ad.UpdatedAt)
	cp := *ad
	r.db.ads[cp.ID] = &cp
	return nil
}

func (r *adRepo) Get(_ context.Context, id uuid.UUID) (*model.PharmacyAd, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ad, ok := r.db.ads[id]
	if !ok {
		return nil, errors.NotFound("ad", nil)
	}
	out := *ad
	return &out, nil
}

func (r *adRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.PharmacyAd
	for _, ad := range r.db.ads {
		if ad.PharmacyID == pharmacyID {
			cp := *ad
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsActive != b.IsActive {
			return a.IsActive
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *adRepo) ListActiveByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error) {
	all, _ := r.ListByPharmacy(ctx, pharmacyID)
	var out []*model.PharmacyAd
	for _, ad := range all {
		if ad.IsActive {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (r *adRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ad, ok := r.db.ads[id]
	if !ok {
		return errors.NotFound("ad", nil)
	}
	ad.IsActive = active
	r.db.stamp(nil, &ad.UpdatedAt)
	return nil
}

func (r *adRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.ads[id]; !ok {
		return errors.NotFound("ad", nil)
	}
	delete(r.db.ads, id)
	return nil
}

// ---- outbox

type outboxRepo struct{ db *DB }

func (r *outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	r.db.stamp(&event.CreatedAt, &event.UpdatedAt)
	cp := *event
	r.db.outbox[cp.ID] = &cp
	r.db.outboxOrder = append(r.db.outboxOrder, cp.ID)
	return nil
}

func (r *outboxRepo) GetPendingEventsWithLock(_ context.Context, limit int, staleAfter time.Duration) ([]*model.OutboxEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	var out []*model.OutboxEvent
	for _, id := range r.db.outboxOrder {
		if limit > 0 && len(out) >= limit {
			break
		}
		e, ok := r.db.outbox[id]
		if !ok {
			continue
		}
		due := e.Status == model.OutboxStatusPending ||
			(e.Status == model.OutboxStatusRetry && (e.RetryAt == nil || !e.RetryAt.After(now))) ||
			(e.Status == model.OutboxStatusProcessing && staleAfter > 0 && !e.UpdatedAt.After(now.Add(-staleAfter)))
		if !due {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = now
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.outbox[id]
	if !ok {
		return errors.NotFound("outbox event", nil)
	}
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	if status == model.OutboxStatusRetry {
		e.RetryCount++
	}
	if status == model.OutboxStatusProcessed {
		now := r.db.now()
		e.ProcessedAt = &now
	}
	r.db.stamp(nil, &e.UpdatedAt)
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	kept := r.db.outboxOrder[:0]
	for _, id := range r.db.outboxOrder {
		e := r.db.outbox[id]
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.db.outbox, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	r.db.outboxOrder = kept
	return n, nil
}
