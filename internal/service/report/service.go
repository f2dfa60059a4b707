package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
)

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"

	Range7d  = "7d"
	Range30d = "30d"

	DefaultCacheTTL = 60 * time.Second

	topMedications   = 5
	lowestAdherence  = 10
	summaryLowStock  = 30
	overviewLowStock = 10
	maxAdherenceDays = 365
	unknownName      = "Unknown"
)

var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// LowStockMessage is the refill offer sent to a client over WhatsApp.
func LowStockMessage(clientName, medicationName string) string {
	return fmt.Sprintf("Olá %s, seu medicamento %s está acabando. Podemos te ajudar a repor?", clientName, medicationName)
}

type ReportService interface {
	TodayAdherence(ctx context.Context, principal *model.Principal) (*model.TodayAdherence, error)
	ClientAdherence(ctx context.Context, principal *model.Principal, clientID uuid.UUID, days int) (*model.ClientAdherence, error)
	Progress(ctx context.Context, principal *model.Principal, clientID uuid.UUID, period, date string) (*model.Progress, error)
	Calendar(ctx context.Context, principal *model.Principal, clientID uuid.UUID, month string) ([]*model.CalendarDay, error)
	PharmacySummary(ctx context.Context, pharmacyID uuid.UUID, rangeKey string) (*model.PharmacySummary, error)
	PharmacyOverview(ctx context.Context, pharmacyID uuid.UUID) (*model.PharmacyOverview, error)
	LowStock(ctx context.Context, pharmacyID uuid.UUID, limit int) ([]*model.LowStockRow, error)
}

type Config struct {
	CacheTTL time.Duration
	Location *time.Location
}

type Service struct {
	doseRepo   repository.DoseRepository
	medRepo    repository.MedicationRepository
	clientRepo repository.ClientRepository
	cache      *cache.Cache
	loc        *time.Location
	now        func() time.Time
}

func NewService(
	doseRepo repository.DoseRepository,
	medRepo repository.MedicationRepository,
	clientRepo repository.ClientRepository,
	cfg Config,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		doseRepo:   doseRepo,
		medRepo:    medRepo,
		clientRepo: clientRepo,
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		loc:        cfg.Location,
		now:        time.Now,
	}
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

func (s *Service) clientDoses(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	doses, err := s.doseRepo.ListByClient(ctx, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	return doses, nil
}

func countTaken(doses []*model.DoseRecord) int {
	n := 0
	for _, d := range doses {
		if d.Status == model.DoseStatusTaken {
			n++
		}
	}
	return n
}

// TodayAdherence is the client's dashboard gauge for the current local day.
func (s *Service) TodayAdherence(ctx context.Context, principal *model.Principal) (*model.TodayAdherence, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	from := model.StartOfDay(s.now(), s.loc)
	doses, err := s.clientDoses(ctx, *principal.ClientID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	out := &model.TodayAdherence{Total: len(doses), Taken: countTaken(doses)}
	out.Percentage = model.Percent(out.Taken, out.Total)
	out.Level = model.AdherenceLevel(out.Percentage)
	return out, nil
}

func (s *Service) ClientAdherence(ctx context.Context, principal *model.Principal, clientID uuid.UUID, days int) (*model.ClientAdherence, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxAdherenceDays {
		return nil, errors.BadRequest(fmt.Sprintf("days must be at most %d", maxAdherenceDays), nil)
	}
	c, err := s.client(ctx, principal, clientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := model.StartOfDay(now, s.loc).AddDate(0, 0, -(days - 1))
	doses, err := s.clientDoses(ctx, c.ID, from, now)
	if err != nil {
		return nil, err
	}
	out := &model.ClientAdherence{
		ClientID: c.ID,
		Days:     days,
		From:     from,
		To:       now,
		Total:    len(doses),
		Taken:    countTaken(doses),
	}
	out.Percentage = model.Percent(out.Taken, out.Total)
	return out, nil
}

// periodRange resolves the window containing date. Weeks run Sunday to
// Saturday.
func (s *Service) periodRange(period, date string) (time.Time, time.Time, error) {
	day := model.StartOfDay(s.now(), s.loc)
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.BadRequest("date must be YYYY-MM-DD", err)
		}
		day = d
	}
	switch period {
	case "", PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, s.loc)
		return start, start.AddDate(0, 1, 0), nil
	}
	return time.Time{}, time.Time{}, errors.BadRequest("period must be daily, weekly or monthly", nil)
}

func (s *Service) Progress(ctx context.Context, principal *model.Principal, clientID uuid.UUID, period, date string) (*model.Progress, error) {
	from, to, err := s.periodRange(period, date)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = PeriodDaily
	}
	if _, err := s.client(ctx, principal, clientID); err != nil {
		return nil, err
	}
	doses, err := s.clientDoses(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}

	out := &model.Progress{Period: period, From: from, To: to, Total: len(doses), Medications: []*model.MedicationProgress{}}
	perMed := make(map[uuid.UUID]*model.MedicationProgress)
	for _, d := range doses {
		mp, ok := perMed[d.MedicationID]
		if !ok {
			mp = &model.MedicationProgress{MedicationID: d.MedicationID, Name: nameOr(d.MedicationName)}
			perMed[d.MedicationID] = mp
			out.Medications = append(out.Medications, mp)
		}
		mp.Total++
		switch d.Status {
		case model.DoseStatusTaken:
			out.Taken++
			mp.Taken++
		case model.DoseStatusSkipped:
			out.Skipped++
		default:
			out.Pending++
		}
	}
	out.Adherence = model.Percent(out.Taken, out.Total)
	for _, mp := range out.Medications {
		mp.Adherence = model.Percent(mp.Taken, mp.Total)
	}
	sort.SliceStable(out.Medications, func(i, j int) bool { return out.Medications[i].Name < out.Medications[j].Name })
	return out, nil
}

// Calendar returns one entry per local day of the month that has doses.
func (s *Service) Calendar(ctx context.Context, principal *model.Principal, clientID uuid.UUID, month string) ([]*model.CalendarDay, error) {
	start := model.StartOfDay(s.now(), s.loc)
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, s.loc)
	if month != "" {
		m, err := time.ParseInLocation("2006-01", month, s.loc)
		if err != nil {
			return nil, errors.BadRequest("month must be YYYY-MM", err)
		}
		start = m
	}
	if _, err := s.client(ctx, principal, clientID); err != nil {
		return nil, err
	}
	doses, err := s.clientDoses(ctx, clientID, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	days := []*model.CalendarDay{}
	byDate := make(map[string]*model.CalendarDay)
	for _, d := range doses {
		key := d.ScheduledTime.In(s.loc).Format("2006-01-02")
		day, ok := byDate[key]
		if !ok {
			day = &model.CalendarDay{Date: key}
			byDate[key] = day
			days = append(days, day)
		}
		day.Total++
		if d.Status == model.DoseStatusTaken {
			day.Taken++
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func rangeDays(rangeKey string) (int, error) {
	switch rangeKey {
	case "", Range7d:
		return 7, nil
	case Range30d:
		return 30, nil
	}
	return 0, errors.BadRequest("range must be 7d or 30d", nil)
}

// PharmacySummary is the dashboard for one pharmacy over the last 7 or 30
// days. Results are cached per pharmacy and range.
func (s *Service) PharmacySummary(ctx context.Context, pharmacyID uuid.UUID, rangeKey string) (*model.PharmacySummary, error) {
	days, err := rangeDays(rangeKey)
	if err != nil {
		return nil, err
	}
	if rangeKey == "" {
		rangeKey = Range7d
	}
	cacheKey := fmt.Sprintf("summary:%s:%s", pharmacyID, rangeKey)
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(*model.PharmacySummary), nil
	}

	now := s.now()
	today := model.StartOfDay(now, s.loc)
	from := today.AddDate(0, 0, -days)
	doses, err := s.doseRepo.ListByPharmacy(ctx, pharmacyID, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	todays, err := s.doseRepo.ListByPharmacy(ctx, pharmacyID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	meds, err := s.medRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	lowStock, err := s.LowStock(ctx, pharmacyID, summaryLowStock)
	if err != nil {
		return nil, err
	}

	out := &model.PharmacySummary{
		Range:           rangeKey,
		From:            from,
		To:              now,
		TopMedications:  topTaken(doses),
		LowestAdherence: lowestByClient(doses),
		LowStock:        lowStock,
	}
	for _, d := range todays {
		out.Today.Total++
		switch d.Status {
		case model.DoseStatusTaken:
			out.Today.Taken++
		case model.DoseStatusSkipped:
			out.Today.Skipped++
		default:
			out.Today.Pending++
		}
	}
	out.Overall.Total = len(doses)
	out.Overall.Taken = countTaken(doses)
	out.Overall.Pct = model.Percent(out.Overall.Taken, max(out.Overall.Total, 1))
	for _, m := range meds {
		if m.IsActive {
			out.ActiveMedications++
		}
	}

	s.cache.SetDefault(cacheKey, out)
	return out, nil
}

func (s *Service) PharmacyOverview(ctx context.Context, pharmacyID uuid.UUID) (*model.PharmacyOverview, error) {
	cacheKey := fmt.Sprintf("overview:%s", pharmacyID)
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(*model.PharmacyOverview), nil
	}

	meds, err := s.medRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	// taken counts include doses marked ahead of their slot
	doses, err := s.doseRepo.ListByPharmacy(ctx, pharmacyID, time.Time{}, endOfTime)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	runningOut, err := s.LowStock(ctx, pharmacyID, overviewLowStock)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]int)
	for _, m := range meds {
		registered[nameOr(m.Name)]++
	}
	out := &model.PharmacyOverview{
		TopRegistered: top(registered, topMedications),
		TopTaken:      topTaken(doses),
		RunningOut:    runningOut,
	}
	s.cache.SetDefault(cacheKey, out)
	return out, nil
}

// LowStock lists medications at or below the threshold, lowest first,
// each with a refill message link to the client.
func (s *Service) LowStock(ctx context.Context, pharmacyID uuid.UUID, limit int) ([]*model.LowStockRow, error) {
	entries, err := s.medRepo.LowStock(ctx, pharmacyID, model.LowStockThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	rows := make([]*model.LowStockRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &model.LowStockRow{
			MedicationID:   e.MedicationID,
			MedicationName: e.MedicationName,
			ClientID:       e.ClientID,
			ClientName:     e.ClientName,
			ClientPhone:    e.ClientPhone,
			Remaining:      e.Remaining,
			WhatsAppLink:   phone.WhatsAppLink(e.ClientPhone, LowStockMessage(e.ClientName, e.MedicationName)),
		})
	}
	return rows, nil
}

// Invalidate drops the cached dashboards of a pharmacy.
func (s *Service) Invalidate(pharmacyID uuid.UUID) {
	s.cache.Delete(fmt.Sprintf("overview:%s", pharmacyID))
	for _, r := range []string{Range7d, Range30d} {
		s.cache.Delete(fmt.Sprintf("summary:%s:%s", pharmacyID, r))
	}
}

func nameOr(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}

func topTaken(doses []*model.DoseRecord) []model.NameCount {
	counts := make(map[string]int)
	for _, d := range doses {
		if d.Status == model.DoseStatusTaken {
			counts[nameOr(d.MedicationName)]++
		}
	}
	return top(counts, topMedications)
}

func top(counts map[string]int, n int) []model.NameCount {
	out := make([]model.NameCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, model.NameCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func lowestByClient(doses []*model.DoseRecord) []*model.ClientAdherenceRow {
	byClient := make(map[uuid.UUID]*model.ClientAdherenceRow)
	rows := []*model.ClientAdherenceRow{}
	for _, d := range doses {
		row, ok := byClient[d.ClientID]
		if !ok {
			row = &model.ClientAdherenceRow{ClientID: d.ClientID, Name: d.ClientName}
			byClient[d.ClientID] = row
			rows = append(rows, row)
		}
		row.Total++
		if d.Status == model.DoseStatusTaken {
			row.Taken++
		}
	}
	for _, row := range rows {
		row.Pct = model.Percent(row.Taken, row.Total)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Pct != rows[j].Pct {
			return rows[i].Pct < rows[j].Pct
		}
		return rows[i].Name < rows[j].Name
	})
	if len(rows) > lowestAdherence {
		rows = rows[:lowestAdherence]
	}
	return rows
}
