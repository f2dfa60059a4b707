package ad

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/blobstore"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
)

// DefaultWhatsAppMessage is sent when an ad has no message of its own.
const DefaultWhatsAppMessage = "Olá! Vi o anúncio no app e gostaria de informações."

var (
	// allowedTypes maps each accepted image type to the extension its blob
	// is stored under, so media is served with the type that was checked.
	allowedTypes = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Upload is an image received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type AdService interface {
	Create(ctx context.Context, pharmacyID uuid.UUID, upload *Upload, whatsAppPhone, whatsAppMessage string) (*model.PharmacyAd, error)
	List(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error)
	Toggle(ctx context.Context, pharmacyID, id uuid.UUID) (*model.PharmacyAd, error)
	Delete(ctx context.Context, pharmacyID, id uuid.UUID) error
	ActiveForClient(ctx context.Context, principal *model.Principal) ([]*model.ClientAd, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *blobstore.Object, error)
}

type Config struct {
	PublicBaseURL string
	MaxBytes      int64
}

type Service struct {
	adRepo       repository.AdRepository
	pharmacyRepo repository.PharmacyRepository
	store        blobstore.BlobStore
	events       event.Recorder
	baseURL      string
	maxBytes     int64
	now          func() time.Time
}

func NewService(
	adRepo repository.AdRepository,
	pharmacyRepo repository.PharmacyRepository,
	store blobstore.BlobStore,
	events event.Recorder,
	cfg Config,
) *Service {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = blobstore.DefaultMaxSize
	}
	return &Service{
		adRepo:       adRepo,
		pharmacyRepo: pharmacyRepo,
		store:        store,
		events:       events,
		baseURL:      strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:     cfg.MaxBytes,
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, pharmacyID uuid.UUID, upload *Upload, whatsAppPhone, whatsAppMessage string) (*model.PharmacyAd, error) {
	if upload == nil || upload.Content == nil {
		return nil, errors.BadRequest("image is required", nil)
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(upload.ContentType, ";")[0]))
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, errors.BadRequest("image must be png, jpeg, webp or gif", nil)
	}
	if upload.Size > s.maxBytes {
		return nil, errors.BadRequest("image exceeds 5MB", nil)
	}

	key := fmt.Sprintf("%s/%d_%s", pharmacyID, s.now().UnixMilli(), withExt(safeName(upload.Filename), ext))
	obj, err := s.store.Put(ctx, key, contentType, upload.Content)
	if err != nil {
		if stderrors.Is(err, blobstore.ErrTooLarge) {
			return nil, errors.BadRequest("image exceeds 5MB", err)
		}
		if stderrors.Is(err, blobstore.ErrKeyConflict) {
			return nil, errors.Conflict("image already uploaded", err)
		}
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	ad := &model.PharmacyAd{
		PharmacyID:      pharmacyID,
		ImageKey:        obj.Key,
		ImageURL:        s.baseURL + "/" + obj.Key,
		WhatsAppPhone:   optional(phone.Digits(whatsAppPhone)),
		WhatsAppMessage: optional(whatsAppMessage),
		IsActive:        true,
	}
	if err := s.adRepo.Create(ctx, ad); err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			log.Warn().Err(delErr).Str("key", obj.Key).Msg("Failed to remove orphaned image")
		}
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}

	s.notify(ctx, ad)
	return ad, nil
}

func (s *Service) List(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error) {
	return s.adRepo.ListByPharmacy(ctx, pharmacyID)
}

func (s *Service) owned(ctx context.Context, pharmacyID, id uuid.UUID) (*model.PharmacyAd, error) {
	ad, err := s.adRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.PharmacyID != pharmacyID {
		return nil, errors.NotFound("ad", nil)
	}
	return ad, nil
}

func (s *Service) Toggle(ctx context.Context, pharmacyID, id uuid.UUID) (*model.PharmacyAd, error) {
	ad, err := s.owned(ctx, pharmacyID, id)
	if err != nil {
		return nil, err
	}
	ad.IsActive = !ad.IsActive
	if err := s.adRepo.SetActive(ctx, id, ad.IsActive); err != nil {
		return nil, fmt.Errorf("failed to toggle ad: %w", err)
	}
	s.notify(ctx, ad)
	return ad, nil
}

func (s *Service) Delete(ctx context.Context, pharmacyID, id uuid.UUID) error {
	ad, err := s.owned(ctx, pharmacyID, id)
	if err != nil {
		return err
	}
	if err := s.adRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	if err := s.store.Delete(ctx, ad.ImageKey); err != nil && !stderrors.Is(err, blobstore.ErrNotFound) {
		log.Warn().Err(err).Str("key", ad.ImageKey).Msg("Failed to delete ad image")
	}
	ad.IsActive = false
	s.notify(ctx, ad)
	return nil
}

// ActiveForClient returns the banners of the client's pharmacy with a
// WhatsApp link, using the pharmacy phone when the ad has none.
func (s *Service) ActiveForClient(ctx context.Context, principal *model.Principal) ([]*model.ClientAd, error) {
	if !principal.IsClient() {
		return nil, errors.Forbidden("client access required")
	}
	ads, err := s.adRepo.ListActiveByPharmacy(ctx, principal.PharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}

	var fallback string
	if p, err := s.pharmacyRepo.Get(ctx, principal.PharmacyID); err == nil {
		fallback = p.Phone
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load pharmacy: %w", err)
	}

	out := make([]*model.ClientAd, 0, len(ads))
	for _, ad := range ads {
		number := fallback
		if ad.WhatsAppPhone != nil && *ad.WhatsAppPhone != "" {
			number = *ad.WhatsAppPhone
		}
		message := DefaultWhatsAppMessage
		if ad.WhatsAppMessage != nil && *ad.WhatsAppMessage != "" {
			message = *ad.WhatsAppMessage
		}
		out = append(out, &model.ClientAd{PharmacyAd: ad, WhatsAppLink: phone.WhatsAppLink(number, message)})
	}
	return out, nil
}

// Open streams a stored image.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, *blobstore.Object, error) {
	rc, obj, err := s.store.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, blobstore.ErrNotFound) || stderrors.Is(err, blobstore.ErrInvalidKey) {
			return nil, nil, errors.NotFound("media", err)
		}
		return nil, nil, fmt.Errorf("failed to open media: %w", err)
	}
	return rc, obj, nil
}

func (s *Service) notify(ctx context.Context, ad *model.PharmacyAd) {
	event.Notify(ctx, s.events, model.EventAdsChanged, ad.ID, ad,
		model.PharmacyTopic(ad.PharmacyID), model.AdsTopic(ad.PharmacyID))
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		return "image"
	}
	return name
}

func withExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
