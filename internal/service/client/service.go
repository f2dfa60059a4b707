package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
	"github.com/jwalitptl/adherence-api/pkg/security"
)

const (
	dateLayout      = "2006-01-02"
	rosterWindowDay = 7
)

type ClientService interface {
	Create(ctx context.Context, pharmacyID uuid.UUID, req *model.CreateClientRequest) (*model.Client, error)
	List(ctx context.Context, pharmacyID uuid.UUID) ([]*model.ClientListItem, error)
	Get(ctx context.Context, pharmacyID, clientID uuid.UUID) (*model.Client, error)
	Update(ctx context.Context, pharmacyID, clientID uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error)
	Delete(ctx context.Context, pharmacyID, clientID uuid.UUID) error
	Monitoring(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.MonitoringSettings, error)
	SetMonitoring(ctx context.Context, principal *model.Principal, clientID uuid.UUID, settings *model.MonitoringSettings) (*model.MonitoringSettings, error)
}

type Service struct {
	clientRepo  repository.ClientRepository
	accountRepo repository.AccountRepository
	doseRepo    repository.DoseRepository
	hasher      security.PasswordHasher
	events      event.Recorder
	loc         *time.Location
	now         func() time.Time
}

func NewService(
	clientRepo repository.ClientRepository,
	accountRepo repository.AccountRepository,
	doseRepo repository.DoseRepository,
	hasher security.PasswordHasher,
	events event.Recorder,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		clientRepo:  clientRepo,
		accountRepo: accountRepo,
		doseRepo:    doseRepo,
		hasher:      hasher,
		events:      events,
		loc:         loc,
		now:         time.Now,
	}
}

type clientFields struct {
	name  string
	phone string
	email string
	dob   *time.Time
}

func validate(name, phoneNumber, email, dob string) (*clientFields, error) {
	f := &clientFields{
		name:  strings.TrimSpace(name),
		email: strings.ToLower(strings.TrimSpace(email)),
	}
	if f.name == "" {
		return nil, errors.BadRequest("name is required", nil)
	}
	if !phone.IsValid(phoneNumber) {
		return nil, errors.BadRequest("invalid phone", nil)
	}
	f.phone = phone.LocalDigits(phoneNumber)
	if f.email != "" && !phone.IsValidEmail(f.email) {
		return nil, errors.BadRequest("invalid email", nil)
	}
	if dob = strings.TrimSpace(dob); dob != "" {
		t, err := time.Parse(dateLayout, dob)
		if err != nil {
			return nil, errors.BadRequest("invalid date of birth", err)
		}
		f.dob = &t
	}
	return f, nil
}

func (s *Service) Create(ctx context.Context, pharmacyID uuid.UUID, req *model.CreateClientRequest) (*model.Client, error) {
	f, err := validate(req.Name, req.Phone, req.Email, req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < security.MinPasswordLen {
		return nil, errors.BadRequest("password too short", nil)
	}

	if _, err := s.clientRepo.GetByPhone(ctx, f.phone); err == nil {
		return nil, errors.Conflict("a client with this phone already exists", nil)
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check phone: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if stderrors.Is(err, security.ErrPasswordTooShort) {
			return nil, errors.BadRequest("password too short", err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	client := &model.Client{
		PharmacyID:     pharmacyID,
		Name:           f.name,
		Email:          f.email,
		Phone:          f.phone,
		DateOfBirth:    f.dob,
		MonitorBP:      req.MonitorBP,
		MonitorGlucose: req.MonitorGlucose,
	}
	account := &model.Account{
		Email:        phone.AuthEmail(req.Phone),
		PasswordHash: hash,
		Role:         model.RoleClient,
	}
	if err := s.accountRepo.CreateClientAccount(ctx, account, client); err != nil {
		return nil, err
	}

	log.Info().
		Str("pharmacy_id", pharmacyID.String()).
		Str("client_id", client.ID.String()).
		Msg("Client created")
	event.Notify(ctx, s.events, model.EventClientsChanged, client.ID, client, model.PharmacyTopic(pharmacyID))
	return client, nil
}

// List returns the pharmacy's clients, newest first, each with its adherence
// over the last seven days.
func (s *Service) List(ctx context.Context, pharmacyID uuid.UUID) ([]*model.ClientListItem, error) {
	clients, err := s.clientRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	now := s.now()
	from := model.StartOfDay(now, s.loc).AddDate(0, 0, -(rosterWindowDay - 1))
	doses, err := s.doseRepo.ListByPharmacy(ctx, pharmacyID, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}

	type tally struct{ total, taken int }
	counts := make(map[uuid.UUID]*tally)
	for _, d := range doses {
		t, ok := counts[d.ClientID]
		if !ok {
			t = &tally{}
			counts[d.ClientID] = t
		}
		t.total++
		if d.Status == model.DoseStatusTaken {
			t.taken++
		}
	}

	items := make([]*model.ClientListItem, 0, len(clients))
	for _, c := range clients {
		item := &model.ClientListItem{Client: c}
		if t, ok := counts[c.ID]; ok {
			item.DosesTotal, item.DosesTaken = t.total, t.taken
			item.Adherence7d = model.Percent(t.taken, t.total)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, pharmacyID, clientID uuid.UUID) (*model.Client, error) {
	c, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.PharmacyID != pharmacyID {
		return nil, errors.NotFound("client", nil)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, pharmacyID, clientID uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error) {
	c, err := s.Get(ctx, pharmacyID, clientID)
	if err != nil {
		return nil, err
	}
	f, err := validate(req.Name, req.Phone, req.Email, req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	phoneChanged := f.phone != c.Phone
	if phoneChanged {
		other, err := s.clientRepo.GetByPhone(ctx, f.phone)
		switch {
		case err == nil && other.ID != c.ID:
			return nil, errors.Conflict("a client with this phone already exists", nil)
		case err != nil && !errors.Is(err, errors.ErrNotFound):
			return nil, fmt.Errorf("failed to check phone: %w", err)
		}
	}

	c.Name = f.name
	c.Phone = f.phone
	c.Email = f.email
	c.DateOfBirth = f.dob
	c.MonitorBP = req.MonitorBP
	c.MonitorGlucose = req.MonitorGlucose
	// the login identifier follows the phone
	var loginEmail string
	if phoneChanged {
		loginEmail = phone.AuthEmail(f.phone)
	}
	if err := s.clientRepo.UpdateWithLogin(ctx, c, loginEmail); err != nil {
		return nil, err
	}

	event.Notify(ctx, s.events, model.EventClientsChanged, c.ID, c,
		model.PharmacyTopic(pharmacyID), model.ClientTopic(c.ID))
	return c, nil
}

func (s *Service) Delete(ctx context.Context, pharmacyID, clientID uuid.UUID) error {
	if _, err := s.Get(ctx, pharmacyID, clientID); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, clientID); err != nil {
		return err
	}

	log.Info().
		Str("pharmacy_id", pharmacyID.String()).
		Str("client_id", clientID.String()).
		Msg("Client deleted")
	event.Notify(ctx, s.events, model.EventClientsChanged, clientID, nil, model.PharmacyTopic(pharmacyID))
	return nil
}

func (s *Service) authorize(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.Client, error) {
	c, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(c.PharmacyID, c.ID) {
		return nil, errors.NotFound("client", nil)
	}
	return c, nil
}

func (s *Service) Monitoring(ctx context.Context, principal *model.Principal, clientID uuid.UUID) (*model.MonitoringSettings, error) {
	c, err := s.authorize(ctx, principal, clientID)
	if err != nil {
		return nil, err
	}
	return &model.MonitoringSettings{MonitorBP: c.MonitorBP, MonitorGlucose: c.MonitorGlucose}, nil
}

func (s *Service) SetMonitoring(ctx context.Context, principal *model.Principal, clientID uuid.UUID, settings *model.MonitoringSettings) (*model.MonitoringSettings, error) {
	c, err := s.authorize(ctx, principal, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.clientRepo.SetMonitoring(ctx, clientID, settings.MonitorBP, settings.MonitorGlucose); err != nil {
		return nil, err
	}

	event.Notify(ctx, s.events, model.EventClientsChanged, clientID, settings,
		model.PharmacyTopic(c.PharmacyID), model.ClientTopic(clientID))
	return settings, nil
}
