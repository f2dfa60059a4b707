package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

// ---- medications

type medicationRepo struct{ db *DB }

// slotTaken reports whether the medication already has a dose at t.
func (db *DB) slotTaken(medID uuid.UUID, t time.Time) bool {
	for _, d := range db.doses {
		if d.MedicationID == medID && d.ScheduledTime.Equal(t) {
			return true
		}
	}
	return false
}

// insertDoses skips slots that already hold a dose, like the unique index on
// (medication_id, scheduled_time) does in Postgres.
func (r *medicationRepo) insertDoses(med *model.Medication, doses []*model.DoseRecord) {
	for _, d := range doses {
		if r.db.slotTaken(med.ID, d.ScheduledTime) {
			continue
		}
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.MedicationID, d.PharmacyID, d.ClientID = med.ID, med.PharmacyID, med.ClientID
		r.db.stamp(&d.CreatedAt, &d.UpdatedAt)
		cp := *d
		r.db.doses[cp.ID] = &cp
	}
}

func (r *medicationRepo) CreateWithDoses(_ context.Context, med *model.Medication, doses []*model.DoseRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if med.ID == uuid.Nil {
		med.ID = uuid.New()
	}
	r.db.stamp(&med.CreatedAt, &med.UpdatedAt)
	cp := *med
	r.db.medications[cp.ID] = &cp
	r.insertDoses(med, doses)
	return nil
}

func (r *medicationRepo) Get(_ context.Context, id uuid.UUID) (*model.Medication, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	m, ok := r.db.medications[id]
	if !ok {
		return nil, errors.NotFound("medication", nil)
	}
	out := *m
	return &out, nil
}

func (r *medicationRepo) list(match func(*model.Medication) bool) []*model.Medication {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.Medication
	for _, m := range r.db.medications {
		if match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *medicationRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*model.Medication, error) {
	return r.list(func(m *model.Medication) bool { return m.ClientID == clientID }), nil
}

func (r *medicationRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*model.Medication, error) {
	return r.list(func(m *model.Medication) bool { return m.PharmacyID == pharmacyID }), nil
}

func (r *medicationRepo) deletePendingAfter(medID uuid.UUID, after time.Time) {
	for k, d := range r.db.doses {
		if d.MedicationID == medID && d.Status == model.DoseStatusPending && d.ScheduledTime.After(after) {
			delete(r.db.doses, k)
		}
	}
}

func (r *medicationRepo) Update(_ context.Context, med *model.Medication, regenerateAfter time.Time, doses []*model.DoseRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.medications[med.ID]
	if !ok {
		return errors.NotFound("medication", nil)
	}
	m.Name, m.Dosage, m.Schedules, m.Notes = med.Name, med.Dosage, med.Schedules, med.Notes
	r.db.stamp(nil, &m.UpdatedAt)
	med.UpdatedAt = m.UpdatedAt
	if doses != nil {
		r.deletePendingAfter(med.ID, regenerateAfter)
		r.insertDoses(m, doses)
	}
	return nil
}

func (r *medicationRepo) Deactivate(_ context.Context, id uuid.UUID, after time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.medications[id]
	if !ok {
		return errors.NotFound("medication", nil)
	}
	m.IsActive = false
	r.db.stamp(nil, &m.UpdatedAt)
	r.deletePendingAfter(id, after)
	return nil
}

func (r *medicationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.medications[id]; !ok {
		return errors.NotFound("medication", nil)
	}
	for k, d := range r.db.doses {
		if d.MedicationID == id {
			delete(r.db.doses, k)
		}
	}
	delete(r.db.medications, id)
	return nil
}

func (r *medicationRepo) LowStock(_ context.Context, pharmacyID uuid.UUID, threshold, limit int) ([]*model.LowStockEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.LowStockEntry
	for _, m := range r.db.medications {
		if m.PharmacyID != pharmacyID || m.RemainingDoses == nil || *m.RemainingDoses > threshold {
			continue
		}
		e := &model.LowStockEntry{
			MedicationID:   m.ID,
			MedicationName: m.Name,
			ClientID:       m.ClientID,
			Remaining:      *m.RemainingDoses,
		}
		if c, ok := r.db.clients[m.ClientID]; ok {
			e.ClientName, e.ClientPhone = c.Name, c.Phone
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Remaining != out[j].Remaining {
			return out[i].Remaining < out[j].Remaining
		}
		return out[i].MedicationName < out[j].MedicationName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- doses

type doseRepo struct{ db *DB }

func (r *doseRepo) enrich(d *model.DoseRecord) *model.DoseRecord {
	cp := *d
	if m, ok := r.db.medications[d.MedicationID]; ok {
		cp.MedicationName, cp.MedicationDosage = m.Name, m.Dosage
	}
	if c, ok := r.db.clients[d.ClientID]; ok {
		cp.ClientName = c.Name
	}
	return &cp
}

func (r *doseRepo) Get(_ context.Context, id uuid.UUID) (*model.DoseRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	d, ok := r.db.doses[id]
	if !ok {
		return nil, errors.NotFound("dose record", nil)
	}
	return r.enrich(d), nil
}

func (r *doseRepo) list(match func(*model.DoseRecord) bool) []*model.DoseRecord {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.DoseRecord
	for _, d := range r.db.doses {
		if match(d) {
			out = append(out, r.enrich(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *doseRepo) ListByClient(_ context.Context, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	return r.list(func(d *model.DoseRecord) bool {
		return d.ClientID == clientID && inRange(d.ScheduledTime, from, to)
	}), nil
}

func (r *doseRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	return r.list(func(d *model.DoseRecord) bool {
		return d.PharmacyID == pharmacyID && inRange(d.ScheduledTime, from, to)
	}), nil
}

func (r *doseRepo) ListByMedication(_ context.Context, medicationID uuid.UUID) ([]*model.DoseRecord, error) {
	return r.list(func(d *model.DoseRecord) bool { return d.MedicationID == medicationID }), nil
}

func (r *doseRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, actualTime *time.Time) (*model.DoseRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.doses[id]
	if !ok {
		return nil, errors.NotFound("dose record", nil)
	}
	if m, ok := r.db.medications[d.MedicationID]; ok {
		m.RemainingDoses = model.ApplyRemaining(m.RemainingDoses, model.RemainingDelta(d.Status, status))
	}
	d.Status = status
	d.ActualTime = actualTime
	r.db.stamp(nil, &d.UpdatedAt)
	return r.enrich(d), nil
}

func (r *doseRepo) CreateTaken(_ context.Context, dose *model.DoseRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.medications[dose.MedicationID]
	if !ok {
		return errors.NotFound("medication", nil)
	}
	if r.db.slotTaken(dose.MedicationID, dose.ScheduledTime) {
		return errors.Conflict("a dose is already recorded at this time", nil)
	}
	if dose.ID == uuid.Nil {
		dose.ID = uuid.New()
	}
	dose.Status = model.DoseStatusTaken
	r.db.stamp(&dose.CreatedAt, &dose.UpdatedAt)
	cp := *dose
	r.db.doses[cp.ID] = &cp
	m.RemainingDoses = model.ApplyRemaining(m.RemainingDoses, -1)
	return nil
}

func (r *doseRepo) MarkMissed(_ context.Context, clientID *uuid.UUID, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, d := range r.db.doses {
		if clientID != nil && d.ClientID != *clientID {
			continue
		}
		if d.Status == model.DoseStatusPending && d.ScheduledTime.Before(before) {
			d.Status = model.DoseStatusSkipped
			r.db.stamp(nil, &d.UpdatedAt)
			n++
		}
	}
	return n, nil
}
