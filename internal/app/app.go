// Package app wires repositories, services and handlers into an HTTP router.
// The serve command uses it with Postgres and Redis; tests use it with the
// in-memory repositories and broker.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/adherence-api/internal/config"
	adhandler "github.com/jwalitptl/adherence-api/internal/handler/ad"
	authhandler "github.com/jwalitptl/adherence-api/internal/handler/auth"
	clienthandler "github.com/jwalitptl/adherence-api/internal/handler/client"
	dosehandler "github.com/jwalitptl/adherence-api/internal/handler/dose"
	"github.com/jwalitptl/adherence-api/internal/handler/health"
	issuehandler "github.com/jwalitptl/adherence-api/internal/handler/issue"
	medicationhandler "github.com/jwalitptl/adherence-api/internal/handler/medication"
	pharmacyhandler "github.com/jwalitptl/adherence-api/internal/handler/pharmacy"
	reporthandler "github.com/jwalitptl/adherence-api/internal/handler/report"
	vitalshandler "github.com/jwalitptl/adherence-api/internal/handler/vitals"
	"github.com/jwalitptl/adherence-api/internal/middleware"
	"github.com/jwalitptl/adherence-api/internal/realtime"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/router"
	"github.com/jwalitptl/adherence-api/internal/service/ad"
	authsvc "github.com/jwalitptl/adherence-api/internal/service/auth"
	"github.com/jwalitptl/adherence-api/internal/service/client"
	"github.com/jwalitptl/adherence-api/internal/service/dose"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/internal/service/issue"
	"github.com/jwalitptl/adherence-api/internal/service/medication"
	"github.com/jwalitptl/adherence-api/internal/service/pharmacy"
	"github.com/jwalitptl/adherence-api/internal/service/report"
	"github.com/jwalitptl/adherence-api/internal/service/vitals"
	"github.com/jwalitptl/adherence-api/pkg/auth"
	"github.com/jwalitptl/adherence-api/pkg/blobstore"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
	"github.com/jwalitptl/adherence-api/pkg/security"
)

// Deps are the infrastructure pieces the services run on.
type Deps struct {
	Repos    *repository.Repositories
	Store    blobstore.BlobStore
	Hasher   security.PasswordHasher
	Metrics  *metrics.Metrics
	Checks   map[string]health.Check
	Gatherer prometheus.Gatherer
}

type Services struct {
	JWT        auth.JWTService
	Auth       *authsvc.Service
	Pharmacy   *pharmacy.Service
	Client     *client.Service
	Medication *medication.Service
	Dose       *dose.Service
	Issue      *issue.Service
	Vitals     *vitals.Service
	Ad         *ad.Service
	Report     *report.Service
}

// JWTConfig converts the jwt config section.
func JWTConfig(cfg config.JWTConfig) auth.Config {
	return auth.Config{
		Secret:        cfg.Secret,
		RefreshSecret: cfg.RefreshSecret,
		Issuer:        "adherence-api",
		AccessTTL:     time.Duration(cfg.ExpiryHours) * time.Hour,
		RefreshTTL:    time.Duration(cfg.RefreshExpiryHours) * time.Hour,
	}
}

func NewServices(cfg *config.Config, d Deps) (*Services, error) {
	jwtSvc, err := auth.NewJWTService(JWTConfig(cfg.JWT))
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	repos := d.Repos
	loc := cfg.App.Location()
	events := event.NewOutboxRecorder(repos.Outbox)

	return &Services{
		JWT:        jwtSvc,
		Auth:       authsvc.NewService(repos.Accounts, repos.Pharmacies, repos.Clients, d.Hasher, jwtSvc),
		Pharmacy:   pharmacy.NewService(repos.Pharmacies),
		Client:     client.NewService(repos.Clients, repos.Accounts, repos.Doses, d.Hasher, events, loc),
		Medication: medication.NewService(repos.Medications, repos.Clients, events, d.Metrics, loc),
		Dose: dose.NewService(repos.Doses, repos.Medications, repos.Clients, repos.Issues, events, d.Metrics, dose.Config{
			MissedGrace: cfg.Doses.MissedGrace,
			Location:    loc,
		}),
		Issue:  issue.NewService(repos.Issues, repos.Doses, repos.Medications, repos.Clients, events),
		Vitals: vitals.NewService(repos.Vitals, repos.Clients),
		Ad: ad.NewService(repos.Ads, repos.Pharmacies, d.Store, events, ad.Config{
			PublicBaseURL: cfg.Media.PublicBaseURL,
			MaxBytes:      cfg.Media.MaxBytes,
		}),
		Report: report.NewService(repos.Doses, repos.Medications, repos.Clients, report.Config{
			Location: loc,
		}),
	}, nil
}

// NewRouter builds the gin engine serving every endpoint. A nil hub leaves
// out the websocket endpoint.
func NewRouter(cfg *config.Config, d Deps, svcs *Services, hub *realtime.Hub) *router.Router {
	handlers := router.Handlers{
		Auth:     authhandler.NewHandler(svcs.Auth),
		Health:   health.NewHandler(d.Checks, d.Gatherer),
		Pharmacy: pharmacyhandler.NewHandler(svcs.Pharmacy),
		Ads:      adhandler.NewHandler(svcs.Ad),
		Resources: []router.RoleHandler{
			clienthandler.NewHandler(svcs.Client),
			medicationhandler.NewHandler(svcs.Medication),
			dosehandler.NewHandler(svcs.Dose, cfg.App.Location()),
			issuehandler.NewHandler(svcs.Issue),
			vitalshandler.NewHandler(svcs.Vitals),
			reporthandler.NewHandler(svcs.Report),
		},
	}
	if hub != nil {
		handlers.Realtime = realtime.NewHandler(hub, cfg.CORS.Origins)
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(svcs.JWT), handlers, d.Metrics, router.RouterConfig{
		RateLimit:      rate.Limit(cfg.RateLimit.RPS),
		RateBurst:      cfg.RateLimit.Burst,
		CORSOrigins:    cfg.CORS.Origins,
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxUploadBytes: cfg.Media.MaxBytes,
		ReleaseMode:    cfg.Log.Level != "debug",
	})
	r.Setup()
	return r
}
