package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dhobighat/api/internal/models"
	"github.com/dhobighat/api/internal/service"
	appErrors "github.com/dhobighat/api/pkg/errors"
)

type itemServiceMock struct {
	createResp *models.ClothingItem
	createErr  error
	lastCreate service.CreateItemRequest

	getResp *models.ClothingItem
	getErr  error

	listResp []models.ClothingItem
	listErr  error
	lastPage models.ItemPage
	lastInc  bool

	updateResp *models.ClothingItem
	updateErr  error
	lastID     string
	lastSecs   int64

	bulkResp *models.TypeIntervalUpdate
	bulkErr  error
	lastType string

	archiveResp *models.ClothingItem
	archiveErr  error

	lastDays int
}

func (m *itemServiceMock) Create(ctx context.Context, req service.CreateItemRequest) (*models.ClothingItem, error) {
	m.lastCreate = req
	return m.createResp, m.createErr
}

func (m *itemServiceMock) Get(ctx context.Context, id string) (*models.ClothingItem, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *itemServiceMock) List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error) {
	m.lastPage = page
	m.lastInc = includeArchived
	return m.listResp, m.listErr
}

func (m *itemServiceMock) SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error) {
	m.lastPage = page
	return m.listResp, m.listErr
}

func (m *itemServiceMock) FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error) {
	m.lastType = itemType
	m.lastPage = page
	return m.listResp, m.listErr
}

func (m *itemServiceMock) NeedingCleaning(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	m.lastPage = page
	return m.listResp, m.listErr
}

func (m *itemServiceMock) RecentlyCleaned(ctx context.Context, days int, page models.ItemPage) ([]models.ClothingItem, error) {
	m.lastDays = days
	m.lastPage = page
	return m.listResp, m.listErr
}

func (m *itemServiceMock) ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	m.lastPage = page
	return m.listResp, m.listErr
}

func (m *itemServiceMock) UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error) {
	m.lastID = id
	m.lastSecs = intervalSeconds
	return m.updateResp, m.updateErr
}

func (m *itemServiceMock) UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error) {
	m.lastType = itemType
	m.lastSecs = intervalSeconds
	return m.bulkResp, m.bulkErr
}

func (m *itemServiceMock) Archive(ctx context.Context, id string) (*models.ClothingItem, error) {
	m.lastID = id
	return m.archiveResp, m.archiveErr
}

func (m *itemServiceMock) Unarchive(ctx context.Context, id string) (*models.ClothingItem, error) {
	m.lastID = id
	return m.archiveResp, m.archiveErr
}

func sampleItem(name, itemType string) models.ClothingItem {
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return models.ClothingItem{
		ID:                      primitive.NewObjectID(),
		Name:                    name,
		ItemType:                itemType,
		LastCleaned:             lastCleaned,
		CleaningIntervalSeconds: 604800,
		NextCleaningDate:        lastCleaned.Add(7 * 24 * time.Hour),
	}
}

func multipartItemRequest(t *testing.T, fields map[string]string, withImage bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if withImage {
		part, err := writer.CreateFormFile("image", "shirt.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/clothing-items", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestItemHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	item := sampleItem("Blue T-Shirt", "shirt")
	mockSvc := &itemServiceMock{createResp: &item}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartItemRequest(t, map[string]string{
		"name":                      "Blue T-Shirt",
		"clothingItemType":          "shirt",
		"cleaning_interval_seconds": "86400",
	}, true)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Blue T-Shirt", mockSvc.lastCreate.Name)
	assert.Equal(t, "shirt", mockSvc.lastCreate.ItemType)
	assert.Equal(t, int64(86400), mockSvc.lastCreate.IntervalSeconds)
	assert.Equal(t, "shirt.jpg", mockSvc.lastCreate.ImageFilename)
	assert.Equal(t, []byte("fake-image-bytes"), mockSvc.lastCreate.ImageContent)
}

func TestItemHandlerCreateRequiresInterval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewItemHandler(&itemServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartItemRequest(t, map[string]string{
		"name":             "Blue T-Shirt",
		"clothingItemType": "shirt",
	}, true)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandlerCreateRejectsNonIntegerInterval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewItemHandler(&itemServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartItemRequest(t, map[string]string{
		"name":                      "Blue T-Shirt",
		"clothingItemType":          "shirt",
		"cleaning_interval_seconds": "weekly",
	}, true)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandlerCreateMissingImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewItemHandler(&itemServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartItemRequest(t, map[string]string{"name": "Blue T-Shirt"}, false)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandlerListGroupsByType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itemServiceMock{listResp: []models.ClothingItem{
		sampleItem("Blue T-Shirt", "shirt"),
		sampleItem("White Shirt", "shirt"),
		sampleItem("Jeans", "pants"),
	}}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/clothing-items?skip=10&limit=50&include_archived=true", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ItemPage{Skip: 10, Limit: 50}, mockSvc.lastPage)
	assert.True(t, mockSvc.lastInc)

	var envelope struct {
		Data map[string][]models.ClothingItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data["shirt"], 2)
	assert.Len(t, envelope.Data["pants"], 1)
}

func TestItemHandlerListRejectsBadPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewItemHandler(&itemServiceMock{})

	for _, query := range []string{"skip=-1", "limit=0", "limit=1001", "skip=abc"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req, _ := http.NewRequest(http.MethodGet, "/clothing-items?"+query, nil)
		c.Request = req

		handler.List(c)
		require.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestItemHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itemServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/clothing-items/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemHandlerUpdateInterval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	item := sampleItem("Blue T-Shirt", "shirt")
	mockSvc := &itemServiceMock{updateResp: &item}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/clothing-items/"+item.ID.Hex()+"/cleaning-interval?cleaning_interval_seconds=86400", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: item.ID.Hex()}}

	handler.UpdateInterval(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, item.ID.Hex(), mockSvc.lastID)
	assert.Equal(t, int64(86400), mockSvc.lastSecs)
}

func TestItemHandlerUpdateIntervalMissingQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewItemHandler(&itemServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/clothing-items/abc/cleaning-interval", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.UpdateInterval(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandlerUpdateIntervalByType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itemServiceMock{bulkResp: &models.TypeIntervalUpdate{ModifiedCount: 3, ItemType: "shirt", NewIntervalSeconds: 86400}}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/clothing-items/type/shirt/cleaning-interval?cleaning_interval_seconds=86400", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "itemType", Value: "shirt"}}

	handler.UpdateIntervalByType(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shirt", mockSvc.lastType)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, float64(3), envelope.Data["modified_count"])
	assert.Equal(t, "shirt", envelope.Data["item_type"])
}

func TestItemHandlerRecentlyCleanedValidatesDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &itemServiceMock{}
	handler := NewItemHandler(mockSvc)

	for _, query := range []string{"days=0", "days=366", "days=abc"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req, _ := http.NewRequest(http.MethodGet, "/clothing-items/recently-cleaned?"+query, nil)
		c.Request = req

		handler.RecentlyCleaned(c)
		require.Equal(t, http.StatusBadRequest, w.Code, query)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/clothing-items/recently-cleaned?days=30", nil)
	c.Request = req

	handler.RecentlyCleaned(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, mockSvc.lastDays)
}

func TestItemHandlerArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	item := sampleItem("Blue T-Shirt", "shirt")
	item.IsArchived = true
	mockSvc := &itemServiceMock{archiveResp: &item}
	handler := NewItemHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/clothing-items/"+item.ID.Hex()+"/archive", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: item.ID.Hex()}}

	handler.Archive(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, item.ID.Hex(), mockSvc.lastID)

	var envelope struct {
		Data models.ClothingItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.IsArchived)
}
