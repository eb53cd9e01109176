package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dhobighat/api/internal/models"
	"github.com/dhobighat/api/internal/schedule"
	appErrors "github.com/dhobighat/api/pkg/errors"
)

type mockItemRepo struct {
	items     map[string]models.ClothingItem
	listCalls int
	err       error
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[string]models.ClothingItem)}
}

func (m *mockItemRepo) seed(item models.ClothingItem) models.ClothingItem {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	item.NextCleaningDate = schedule.NextCleaningDate(item.LastCleaned, item.CleaningIntervalSeconds)
	m.items[item.ID.Hex()] = item
	return item
}

func (m *mockItemRepo) Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	stored := *item
	stored.ID = primitive.NewObjectID()
	stored.NextCleaningDate = schedule.NextCleaningDate(stored.LastCleaned, stored.CleaningIntervalSeconds)
	m.items[stored.ID.Hex()] = stored
	return &stored, nil
}

func (m *mockItemRepo) FindByID(ctx context.Context, id string) (*models.ClothingItem, error) {
	if item, ok := m.items[id]; ok {
		return &item, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (m *mockItemRepo) List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.ClothingItem, 0, len(m.items))
	for _, item := range m.items {
		if item.IsArchived && !includeArchived {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *mockItemRepo) SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error) {
	out := make([]models.ClothingItem, 0)
	for _, item := range m.items {
		if item.IsArchived {
			continue
		}
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(name)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error) {
	out := make([]models.ClothingItem, 0)
	for _, item := range m.items {
		if item.IsArchived {
			continue
		}
		if strings.Contains(strings.ToLower(item.ItemType), strings.ToLower(itemType)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) NeedingCleaning(ctx context.Context, now time.Time, page models.ItemPage) ([]models.ClothingItem, error) {
	out := make([]models.ClothingItem, 0)
	for _, item := range m.items {
		if item.IsArchived {
			continue
		}
		if !item.NextCleaningDate.After(now) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) RecentlyCleaned(ctx context.Context, cutoff time.Time, page models.ItemPage) ([]models.ClothingItem, error) {
	out := make([]models.ClothingItem, 0)
	for _, item := range m.items {
		if item.IsArchived {
			continue
		}
		if !item.LastCleaned.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	out := make([]models.ClothingItem, 0)
	for _, item := range m.items {
		if item.IsArchived {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	item.CleaningIntervalSeconds = intervalSeconds
	item.NextCleaningDate = schedule.NextCleaningDate(item.LastCleaned, intervalSeconds)
	m.items[id] = item
	return &item, nil
}

func (m *mockItemRepo) UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error) {
	var modified int64
	for id, item := range m.items {
		if !strings.Contains(strings.ToLower(item.ItemType), strings.ToLower(itemType)) {
			continue
		}
		if item.CleaningIntervalSeconds == intervalSeconds {
			// matched but nothing changes: the store reports zero modified
			continue
		}
		item.CleaningIntervalSeconds = intervalSeconds
		item.NextCleaningDate = schedule.NextCleaningDate(item.LastCleaned, intervalSeconds)
		m.items[id] = item
		modified++
	}
	return &models.TypeIntervalUpdate{ModifiedCount: modified, ItemType: itemType, NewIntervalSeconds: intervalSeconds}, nil
}

func (m *mockItemRepo) SetArchived(ctx context.Context, id string, archived bool) (*models.ClothingItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	item.IsArchived = archived
	m.items[id] = item
	return &item, nil
}

type mockUploader struct {
	url      string
	err      error
	filename string
}

func (m *mockUploader) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	m.filename = filename
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func newTestItemService(repo *mockItemRepo, uploader *mockUploader, cache *CacheService) *ItemService {
	return NewItemService(repo, uploader, cache, nil, nil, nil)
}

func TestCreateComputesNextCleaningDate(t *testing.T) {
	repo := newMockItemRepo()
	uploader := &mockUploader{url: "https://i.ibb.co/abc/shirt.jpg"}
	svc := newTestItemService(repo, uploader, nil)

	created, err := svc.Create(context.Background(), CreateItemRequest{
		Name:            "Blue T-Shirt",
		ItemType:        "shirt",
		IntervalSeconds: 604800,
		ImageFilename:   "shirt.jpg",
		ImageContent:    []byte("fake-image"),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://i.ibb.co/abc/shirt.jpg", created.Image)
	assert.Equal(t, "shirt.jpg", uploader.filename)
	assert.Equal(t, created.LastCleaned.Add(7*24*time.Hour), created.NextCleaningDate)
	assert.WithinDuration(t, time.Now().UTC(), created.LastCleaned, 5*time.Second)
	assert.False(t, created.IsArchived)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	svc := newTestItemService(newMockItemRepo(), &mockUploader{url: "x"}, nil)

	cases := []CreateItemRequest{
		{ItemType: "shirt", IntervalSeconds: 60, ImageContent: []byte("x")},
		{Name: "Shirt", IntervalSeconds: 60, ImageContent: []byte("x")},
		{Name: "Shirt", ItemType: "shirt", ImageContent: []byte("x")},
		{Name: "Shirt", ItemType: "shirt", IntervalSeconds: -1, ImageContent: []byte("x")},
		{Name: "Shirt", ItemType: "shirt", IntervalSeconds: 60},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCreateSurfacesUploadFailure(t *testing.T) {
	uploader := &mockUploader{err: assert.AnError}
	svc := newTestItemService(newMockItemRepo(), uploader, nil)

	_, err := svc.Create(context.Background(), CreateItemRequest{
		Name:            "Blue T-Shirt",
		ItemType:        "shirt",
		IntervalSeconds: 604800,
		ImageContent:    []byte("fake-image"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUploadFailed.Code, appErrors.FromError(err).Code)
}

func TestUpdateIntervalRecomputesFromLastCleaned(t *testing.T) {
	repo := newMockItemRepo()
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	item := repo.seed(models.ClothingItem{
		Name:                    "Blue T-Shirt",
		ItemType:                "shirt",
		LastCleaned:             lastCleaned,
		CleaningIntervalSeconds: 604800,
	})
	svc := newTestItemService(repo, &mockUploader{}, nil)

	updated, err := svc.UpdateInterval(context.Background(), item.ID.Hex(), 86400)
	require.NoError(t, err)

	// recomputed from the original last_cleaned, not from now
	assert.Equal(t, lastCleaned, updated.LastCleaned)
	assert.Equal(t, int64(86400), updated.CleaningIntervalSeconds)
	assert.Equal(t, lastCleaned.Add(24*time.Hour), updated.NextCleaningDate)
}

func TestUpdateIntervalNotFound(t *testing.T) {
	svc := newTestItemService(newMockItemRepo(), &mockUploader{}, nil)

	_, err := svc.UpdateInterval(context.Background(), primitive.NewObjectID().Hex(), 86400)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateIntervalRejectsNonPositive(t *testing.T) {
	svc := newTestItemService(newMockItemRepo(), &mockUploader{}, nil)

	_, err := svc.UpdateInterval(context.Background(), primitive.NewObjectID().Hex(), 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateIntervalByTypeCountsOnlyChangedDocuments(t *testing.T) {
	repo := newMockItemRepo()
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	repo.seed(models.ClothingItem{Name: "Blue T-Shirt", ItemType: "shirt", LastCleaned: lastCleaned, CleaningIntervalSeconds: 604800})
	repo.seed(models.ClothingItem{Name: "White Shirt", ItemType: "shirt", LastCleaned: lastCleaned, CleaningIntervalSeconds: 86400})
	repo.seed(models.ClothingItem{Name: "Jeans", ItemType: "pants", LastCleaned: lastCleaned, CleaningIntervalSeconds: 604800})
	svc := newTestItemService(repo, &mockUploader{}, nil)

	result, err := svc.UpdateIntervalByType(context.Background(), "shirt", 86400)
	require.NoError(t, err)

	// two shirts matched, but one already held 86400
	assert.Equal(t, int64(1), result.ModifiedCount)
	assert.Equal(t, "shirt", result.ItemType)
	assert.Equal(t, int64(86400), result.NewIntervalSeconds)
}

func TestArchiveExcludesFromDefaultViews(t *testing.T) {
	repo := newMockItemRepo()
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	item := repo.seed(models.ClothingItem{Name: "Blue T-Shirt", ItemType: "shirt", LastCleaned: lastCleaned, CleaningIntervalSeconds: 604800})
	svc := newTestItemService(repo, &mockUploader{}, nil)

	archived, err := svc.Archive(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	listed, err := svc.List(context.Background(), models.ItemPage{Limit: 100}, false)
	require.NoError(t, err)
	assert.Empty(t, listed)

	archivedList, err := svc.ListArchived(context.Background(), models.ItemPage{Limit: 100})
	require.NoError(t, err)
	require.Len(t, archivedList, 1)
	assert.Equal(t, item.ID, archivedList[0].ID)

	// still individually retrievable
	got, err := svc.Get(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	assert.True(t, got.IsArchived)

	restored, err := svc.Unarchive(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
}

func TestNeedingCleaningBoundary(t *testing.T) {
	repo := newMockItemRepo()
	now := time.Now().UTC()
	// due one hour ago
	repo.seed(models.ClothingItem{Name: "Overdue", ItemType: "shirt", LastCleaned: now.Add(-8 * 24 * time.Hour), CleaningIntervalSeconds: int64((7 * 24 * time.Hour).Seconds())})
	// not due for another week
	repo.seed(models.ClothingItem{Name: "Fresh", ItemType: "shirt", LastCleaned: now, CleaningIntervalSeconds: 604800})
	svc := newTestItemService(repo, &mockUploader{}, nil)

	due, err := svc.NeedingCleaning(context.Background(), models.ItemPage{Limit: 100})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Overdue", due[0].Name)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestItemService(newMockItemRepo(), &mockUploader{}, nil)

	_, err := svc.Get(context.Background(), "not-a-hex-id")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListServesFromCacheAndInvalidatesOnWrite(t *testing.T) {
	repo := newMockItemRepo()
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	item := repo.seed(models.ClothingItem{Name: "Blue T-Shirt", ItemType: "shirt", LastCleaned: lastCleaned, CleaningIntervalSeconds: 604800})
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := newTestItemService(repo, &mockUploader{}, cache)

	_, err := svc.List(context.Background(), models.ItemPage{Limit: 100}, false)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.ItemPage{Limit: 100}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	// a write invalidates listings
	_, err = svc.Archive(context.Background(), item.ID.Hex())
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), models.ItemPage{Limit: 100}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	assert.Empty(t, listed)
}
