// Package memory implements the repository interfaces over in-process maps.
// It backs service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

// DB holds every table. Repositories built on the same DB share state, so
// cross-table operations behave like a single transaction.
type DB struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]*model.Account
	pharmacies  map[uuid.UUID]*model.Pharmacy
	clients     map[uuid.UUID]*model.Client
	medications map[uuid.UUID]*model.Medication
	doses       map[uuid.UUID]*model.DoseRecord
	events      map[uuid.UUID]*model.AdverseEvent
	corrections map[uuid.UUID]*model.DoseCorrection
	vitals      map[uuid.UUID]*model.VitalSign
	ads         map[uuid.UUID]*model.PharmacyAd
	outbox      map[uuid.UUID]*model.OutboxEvent
	outboxOrder []uuid.UUID
	now         func() time.Time
}

func NewDB() *DB {
	return &DB{
		accounts:    make(map[uuid.UUID]*model.Account),
		pharmacies:  make(map[uuid.UUID]*model.Pharmacy),
		clients:     make(map[uuid.UUID]*model.Client),
		medications: make(map[uuid.UUID]*model.Medication),
		doses:       make(map[uuid.UUID]*model.DoseRecord),
		events:      make(map[uuid.UUID]*model.AdverseEvent),
		corrections: make(map[uuid.UUID]*model.DoseCorrection),
		vitals:      make(map[uuid.UUID]*model.VitalSign),
		ads:         make(map[uuid.UUID]*model.PharmacyAd),
		outbox:      make(map[uuid.UUID]*model.OutboxEvent),
		now:         time.Now,
	}
}

// Repositories are the in-memory repositories sharing one DB. The DB is
// exposed so tests can inspect state and pin the clock.
type Repositories struct {
	repository.Repositories
	DB *DB
}

func New() *Repositories {
	db := NewDB()
	return &Repositories{
		DB: db,
		Repositories: repository.Repositories{
			Accounts:    &accountRepo{db},
			Pharmacies:  &pharmacyRepo{db},
			Clients:     &clientRepo{db},
			Medications: &medicationRepo{db},
			Doses:       &doseRepo{db},
			Issues:      &issueRepo{db},
			Vitals:      &vitalsRepo{db},
			Ads:         &adRepo{db},
			Outbox:      &outboxRepo{db},
		},
	}
}

func (db *DB) stamp(created, updated *time.Time) {
	now := db.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// OutboxEvents returns a snapshot of every outbox row in insertion order.
func (db *DB) OutboxEvents() []model.OutboxEvent {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.OutboxEvent, 0, len(db.outboxOrder))
	for _, id := range db.outboxOrder {
		if e, ok := db.outbox[id]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// DosesOf returns a snapshot of every dose of a medication ordered by schedule.
func (db *DB) DosesOf(medicationID uuid.UUID) []model.DoseRecord {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []model.DoseRecord
	for _, d := range db.doses {
		if d.MedicationID == medicationID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out
}

// ---- accounts

type accountRepo struct{ db *DB }

func (r *accountRepo) emailTaken(email string) bool {
	for _, a := range r.db.accounts {
		if a.Email == email {
			return true
		}
	}
	return false
}

func (r *accountRepo) CreatePharmacyAccount(_ context.Context, account *model.Account, pharmacy *model.Pharmacy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.emailTaken(account.Email) {
		return errors.Conflict("email already registered", nil)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if pharmacy.ID == uuid.Nil {
		pharmacy.ID = uuid.New()
	}
	pharmacy.AuthID = account.ID
	r.db.stamp(&account.CreatedAt, &account.UpdatedAt)
	r.db.stamp(&pharmacy.CreatedAt, &pharmacy.UpdatedAt)
	a, p := *account, *pharmacy
	r.db.accounts[a.ID] = &a
	r.db.pharmacies[p.ID] = &p
	return nil
}

func (r *accountRepo) CreateClientAccount(_ context.Context, account *model.Account, client *model.Client) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.emailTaken(account.Email) {
		return errors.Conflict("email already registered", nil)
	}
	for _, c := range r.db.clients {
		if c.Phone == client.Phone {
			return errors.Conflict("a client with this phone already exists", nil)
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	authID := account.ID
	client.AuthID = &authID
	r.db.stamp(&account.CreatedAt, &account.UpdatedAt)
	r.db.stamp(&client.CreatedAt, &client.UpdatedAt)
	a, c := *account, *client
	r.db.accounts[a.ID] = &a
	r.db.clients[c.ID] = &c
	return nil
}

func (r *accountRepo) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return nil, errors.NotFound("account", nil)
	}
	out := *a
	return &out, nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, a := range r.db.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, errors.NotFound("account", nil)
}

func (r *accountRepo) UpdateLoginState(_ context.Context, account *model.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[account.ID]
	if !ok {
		return errors.NotFound("account", nil)
	}
	a.LoginAttempts = account.LoginAttempts
	a.LockedUntil = account.LockedUntil
	a.LastLoginAt = account.LastLoginAt
	r.db.stamp(nil, &a.UpdatedAt)
	return nil
}

func (r *accountRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return errors.NotFound("account", nil)
	}
	a.PasswordHash = passwordHash
	a.LoginAttempts = 0
	a.LockedUntil = nil
	r.db.stamp(nil, &a.UpdatedAt)
	return nil
}

// ---- pharmacies

type pharmacyRepo struct{ db *DB }

func (r *pharmacyRepo) Get(_ context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.pharmacies[id]
	if !ok {
		return nil, errors.NotFound("pharmacy", nil)
	}
	out := *p
	return &out, nil
}

func (r *pharmacyRepo) GetByAuthID(_ context.Context, authID uuid.UUID) (*model.Pharmacy, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, p := range r.db.pharmacies {
		if p.AuthID == authID {
			out := *p
			return &out, nil
		}
	}
	return nil, errors.NotFound("pharmacy", nil)
}

func (r *pharmacyRepo) Update(_ context.Context, pharmacy *model.Pharmacy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.pharmacies[pharmacy.ID]
	if !ok {
		return errors.NotFound("pharmacy", nil)
	}
	p.Name, p.Email, p.Phone, p.Address = pharmacy.Name, pharmacy.Email, pharmacy.Phone, pharmacy.Address
	r.db.stamp(nil, &p.UpdatedAt)
	pharmacy.UpdatedAt = p.UpdatedAt
	return nil
}

func (r *pharmacyRepo) List(_ context.Context) ([]*model.Pharmacy, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]*model.Pharmacy, 0, len(r.db.pharmacies))
	for _, p := range r.db.pharmacies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- clients

type clientRepo struct{ db *DB }

func (r *clientRepo) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.clients[id]
	if !ok {
		return nil, errors.NotFound("client", nil)
	}
	out := *c
	return &out, nil
}

func (r *clientRepo) GetByAuthID(_ context.Context, authID uuid.UUID) (*model.Client, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.clients {
		if c.AuthID != nil && *c.AuthID == authID {
			out := *c
			return &out, nil
		}
	}
	return nil, errors.NotFound("client", nil)
}

func (r *clientRepo) GetByPhone(_ context.Context, phone string) (*model.Client, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.clients {
		if c.Phone == phone {
			out := *c
			return &out, nil
		}
	}
	return nil, errors.NotFound("client", nil)
}

func (r *clientRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*model.Client, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*model.Client
	for _, c := range r.db.clients {
		if c.PharmacyID == pharmacyID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *clientRepo) UpdateWithLogin(_ context.Context, client *model.Client, loginEmail string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clients[client.ID]
	if !ok {
		return errors.NotFound("client", nil)
	}
	for _, other := range r.db.clients {
		if other.ID != client.ID && other.Phone == client.Phone {
			return errors.Conflict("a client with this phone already exists", nil)
		}
	}

	var account *model.Account
	if loginEmail != "" && c.AuthID != nil {
		if account, ok = r.db.accounts[*c.AuthID]; !ok {
			return errors.NotFound("account", nil)
		}
		for _, other := range r.db.accounts {
			if other.ID != account.ID && other.Email == loginEmail {
				return errors.Conflict("email already registered", nil)
			}
		}
	}

	c.Name, c.Email, c.Phone, c.DateOfBirth = client.Name, client.Email, client.Phone, client.DateOfBirth
	c.MonitorBP, c.MonitorGlucose = client.MonitorBP, client.MonitorGlucose
	r.db.stamp(nil, &c.UpdatedAt)
	client.UpdatedAt = c.UpdatedAt
	if account != nil {
		account.Email = loginEmail
		r.db.stamp(nil, &account.UpdatedAt)
	}
	return nil
}

func (r *clientRepo) SetMonitoring(_ context.Context, id uuid.UUID, bp, glucose bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clients[id]
	if !ok {
		return errors.NotFound("client", nil)
	}
	c.MonitorBP, c.MonitorGlucose = bp, glucose
	r.db.stamp(nil, &c.UpdatedAt)
	return nil
}

func (r *clientRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clients[id]
	if !ok {
		return errors.NotFound("client", nil)
	}
	for k, v := range r.db.doses {
		if v.ClientID == id {
			delete(r.db.doses, k)
		}
	}
	for k, v := range r.db.medications {
		if v.ClientID == id {
			delete(r.db.medications, k)
		}
	}
	for k, v := range r.db.events {
		if v.ClientID == id {
			delete(r.db.events, k)
		}
	}
	for k, v := range r.db.corrections {
		if v.ClientID == id {
			delete(r.db.corrections, k)
		}
	}
	for k, v := range r.db.vitals {
		if v.ClientID == id {
			delete(r.db.vitals, k)
		}
	}
	if c.AuthID != nil {
		delete(r.db.accounts, *c.AuthID)
	}
	delete(r.db.clients, id)
	return nil
}

// SetClock overrides the timestamp source used for created_at and updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}
