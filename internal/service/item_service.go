package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dhobighat/api/internal/models"
	appErrors "github.com/dhobighat/api/pkg/errors"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	itemCachePrefix = "items:"
)

type itemRepository interface {
	Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error)
	FindByID(ctx context.Context, id string) (*models.ClothingItem, error)
	List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error)
	SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error)
	FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error)
	NeedingCleaning(ctx context.Context, now time.Time, page models.ItemPage) ([]models.ClothingItem, error)
	RecentlyCleaned(ctx context.Context, cutoff time.Time, page models.ItemPage) ([]models.ClothingItem, error)
	ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error)
	UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error)
	UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error)
	SetArchived(ctx context.Context, id string, archived bool) (*models.ClothingItem, error)
}

type imageUploader interface {
	Upload(ctx context.Context, filename string, content []byte) (string, error)
}

// CreateItemRequest holds the payload for registering a clothing item. The
// image arrives as raw bytes and is proxied to the image host; only the
// returned URL is persisted.
type CreateItemRequest struct {
	Name            string `validate:"required"`
	ItemType        string `validate:"required"`
	IntervalSeconds int64  `validate:"required,gt=0"`
	ImageFilename   string
	ImageContent    []byte `validate:"required"`
}

// ItemService handles clothing item use-cases.
type ItemService struct {
	repo      itemRepository
	uploader  imageUploader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewItemService constructs the item service.
func NewItemService(repo itemRepository, uploader imageUploader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ItemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{repo: repo, uploader: uploader, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Create uploads the image, then inserts the item with last_cleaned set to
// now and next_cleaning_date derived from it.
func (s *ItemService) Create(ctx context.Context, req CreateItemRequest) (*models.ClothingItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clothing item payload")
	}

	uploadStart := time.Now()
	imageURL, err := s.uploader.Upload(ctx, req.ImageFilename, req.ImageContent)
	if s.metrics != nil {
		s.metrics.ObserveUpload(time.Since(uploadStart))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to upload image")
	}

	item := &models.ClothingItem{
		Name:                    req.Name,
		ItemType:                req.ItemType,
		Image:                   imageURL,
		LastCleaned:             time.Now().UTC(),
		CleaningIntervalSeconds: req.IntervalSeconds,
	}

	start := time.Now()
	created, err := s.repo.Create(ctx, item)
	s.observeStore("create", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create clothing item")
	}

	s.invalidateListings(ctx)
	return created, nil
}

// Get returns a single item by identifier.
func (s *ItemService) Get(ctx context.Context, id string) (*models.ClothingItem, error) {
	start := time.Now()
	item, err := s.repo.FindByID(ctx, id)
	s.observeStore("get", start)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clothing item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clothing item")
	}
	return item, nil
}

// List returns items with pagination. Archived items are excluded unless the
// flag is set. Results for the common case are served from cache when
// caching is enabled.
func (s *ItemService) List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error) {
	page = clampPage(page)
	key := fmt.Sprintf("%slist:%d:%d:%t", itemCachePrefix, page.Skip, page.Limit, includeArchived)

	var cached []models.ClothingItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	items, err := s.repo.List(ctx, page, includeArchived)
	s.observeStore("list", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clothing items")
	}

	_ = s.cache.Set(ctx, key, items, 0)
	return items, nil
}

// SearchByName performs a case-insensitive substring search on item names.
func (s *ItemService) SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error) {
	start := time.Now()
	items, err := s.repo.SearchByName(ctx, name, clampPage(page))
	s.observeStore("search", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search clothing items")
	}
	return items, nil
}

// FilterByType performs a case-insensitive substring match on item types.
func (s *ItemService) FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error) {
	start := time.Now()
	items, err := s.repo.FilterByType(ctx, itemType, clampPage(page))
	s.observeStore("filter_type", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to filter clothing items by type")
	}
	return items, nil
}

// NeedingCleaning lists unarchived items that are due for cleaning.
func (s *ItemService) NeedingCleaning(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	page = clampPage(page)
	key := fmt.Sprintf("%sdue:%d:%d", itemCachePrefix, page.Skip, page.Limit)

	var cached []models.ClothingItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	items, err := s.repo.NeedingCleaning(ctx, time.Now().UTC(), page)
	s.observeStore("needing_cleaning", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items needing cleaning")
	}

	_ = s.cache.Set(ctx, key, items, 0)
	return items, nil
}

// RecentlyCleaned lists unarchived items cleaned within the last N days.
func (s *ItemService) RecentlyCleaned(ctx context.Context, days int, page models.ItemPage) ([]models.ClothingItem, error) {
	if days < 1 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	start := time.Now()
	items, err := s.repo.RecentlyCleaned(ctx, cutoff, clampPage(page))
	s.observeStore("recently_cleaned", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recently cleaned items")
	}
	return items, nil
}

// ListArchived returns only archived items.
func (s *ItemService) ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	start := time.Now()
	items, err := s.repo.ListArchived(ctx, clampPage(page))
	s.observeStore("list_archived", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived clothing items")
	}
	return items, nil
}

// UpdateInterval changes one item's cleaning interval. The next cleaning
// date is recomputed from the item's existing last_cleaned, never from now.
func (s *ItemService) UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error) {
	if intervalSeconds <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cleaning interval must be positive")
	}

	start := time.Now()
	item, err := s.repo.UpdateInterval(ctx, id, intervalSeconds)
	s.observeStore("update_interval", start)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clothing item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cleaning interval")
	}

	s.invalidateListings(ctx)
	return item, nil
}

// UpdateIntervalByType changes the interval for every item of a type and
// reports how many documents actually changed.
func (s *ItemService) UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error) {
	if itemType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "item type is required")
	}
	if intervalSeconds <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cleaning interval must be positive")
	}

	start := time.Now()
	result, err := s.repo.UpdateIntervalByType(ctx, itemType, intervalSeconds)
	s.observeStore("update_interval_by_type", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to update cleaning interval for type %s", itemType))
	}

	s.invalidateListings(ctx)
	return result, nil
}

// Archive soft-deletes an item, removing it from default views.
func (s *ItemService) Archive(ctx context.Context, id string) (*models.ClothingItem, error) {
	return s.setArchived(ctx, id, true)
}

// Unarchive restores an archived item into default views.
func (s *ItemService) Unarchive(ctx context.Context, id string) (*models.ClothingItem, error) {
	return s.setArchived(ctx, id, false)
}

func (s *ItemService) setArchived(ctx context.Context, id string, archived bool) (*models.ClothingItem, error) {
	start := time.Now()
	item, err := s.repo.SetArchived(ctx, id, archived)
	s.observeStore("set_archived", start)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clothing item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update archived state")
	}

	s.invalidateListings(ctx)
	return item, nil
}

func (s *ItemService) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, itemCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate item listings cache", zap.Error(err))
	}
}

func (s *ItemService) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, time.Since(start))
	}
}

func clampPage(page models.ItemPage) models.ItemPage {
	if page.Skip < 0 {
		page.Skip = 0
	}
	if page.Limit <= 0 || page.Limit > maxListLimit {
		page.Limit = defaultListLimit
	}
	return page
}
