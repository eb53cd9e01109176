package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dhobighat/api/internal/models"
	"github.com/dhobighat/api/internal/service"
	appErrors "github.com/dhobighat/api/pkg/errors"
	"github.com/dhobighat/api/pkg/response"
)

type itemService interface {
	Create(ctx context.Context, req service.CreateItemRequest) (*models.ClothingItem, error)
	Get(ctx context.Context, id string) (*models.ClothingItem, error)
	List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error)
	SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error)
	FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error)
	NeedingCleaning(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error)
	RecentlyCleaned(ctx context.Context, days int, page models.ItemPage) ([]models.ClothingItem, error)
	ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error)
	UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error)
	UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error)
	Archive(ctx context.Context, id string) (*models.ClothingItem, error)
	Unarchive(ctx context.Context, id string) (*models.ClothingItem, error)
}

// ItemHandler manages clothing item HTTP endpoints.
type ItemHandler struct {
	service itemService
}

// NewItemHandler constructs the handler.
func NewItemHandler(service itemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// Create godoc
// @Summary Register a clothing item
// @Tags ClothingItems
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Item name"
// @Param clothingItemType formData string true "Item type"
// @Param cleaning_interval_seconds formData integer true "Cleaning interval in seconds"
// @Param image formData file true "Item photo"
// @Success 201 {object} response.Envelope
// @Router /clothing-items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	raw := strings.TrimSpace(c.PostForm("cleaning_interval_seconds"))
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cleaning_interval_seconds is required"))
		return
	}
	intervalSeconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cleaning_interval_seconds must be an integer"))
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open image"))
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image"))
		return
	}

	item, err := h.service.Create(c.Request.Context(), service.CreateItemRequest{
		Name:            strings.TrimSpace(c.PostForm("name")),
		ItemType:        strings.TrimSpace(c.PostForm("clothingItemType")),
		IntervalSeconds: intervalSeconds,
		ImageFilename:   fileHeader.Filename,
		ImageContent:    content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List clothing items grouped by type
// @Tags ClothingItems
// @Produce json
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Param include_archived query boolean false "Include archived items"
// @Success 200 {object} response.Envelope
// @Router /clothing-items [get]
func (h *ItemHandler) List(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeArchived := strings.EqualFold(c.DefaultQuery("include_archived", "false"), "true")

	items, err := h.service.List(c.Request.Context(), page, includeArchived)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groupByType(items), paginationFor(page, len(items)))
}

// Get godoc
// @Summary Get a clothing item
// @Tags ClothingItems
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// SearchByName godoc
// @Summary Search clothing items by name
// @Tags ClothingItems
// @Produce json
// @Param name path string true "Name fragment"
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/search/{name} [get]
func (h *ItemHandler) SearchByName(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.SearchByName(c.Request.Context(), c.Param("name"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(page, len(items)))
}

// FilterByType godoc
// @Summary List clothing items of a type
// @Tags ClothingItems
// @Produce json
// @Param itemType path string true "Item type"
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/type/{itemType} [get]
func (h *ItemHandler) FilterByType(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.FilterByType(c.Request.Context(), c.Param("itemType"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(page, len(items)))
}

// NeedingCleaning godoc
// @Summary List items due for cleaning
// @Tags ClothingItems
// @Produce json
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/needing-cleaning [get]
func (h *ItemHandler) NeedingCleaning(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.NeedingCleaning(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(page, len(items)))
}

// RecentlyCleaned godoc
// @Summary List items cleaned within the last N days
// @Tags ClothingItems
// @Produce json
// @Param days query integer false "Lookback window in days (1-365)"
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/recently-cleaned [get]
func (h *ItemHandler) RecentlyCleaned(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 365 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be between 1 and 365"))
		return
	}
	items, err := h.service.RecentlyCleaned(c.Request.Context(), days, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paginationFor(page, len(items)))
}

// ListArchived godoc
// @Summary List archived clothing items grouped by type
// @Tags ClothingItems
// @Produce json
// @Param skip query integer false "Items to skip"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/archived [get]
func (h *ItemHandler) ListArchived(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListArchived(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groupByType(items), paginationFor(page, len(items)))
}

// UpdateInterval godoc
// @Summary Change one item's cleaning interval
// @Tags ClothingItems
// @Produce json
// @Param id path string true "Item ID"
// @Param cleaning_interval_seconds query integer true "New interval in seconds"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/{id}/cleaning-interval [put]
func (h *ItemHandler) UpdateInterval(c *gin.Context) {
	intervalSeconds, err := parseIntervalQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.UpdateInterval(c.Request.Context(), c.Param("id"), intervalSeconds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateIntervalByType godoc
// @Summary Change the cleaning interval for every item of a type
// @Tags ClothingItems
// @Produce json
// @Param itemType path string true "Item type"
// @Param cleaning_interval_seconds query integer true "New interval in seconds"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/type/{itemType}/cleaning-interval [put]
func (h *ItemHandler) UpdateIntervalByType(c *gin.Context) {
	intervalSeconds, err := parseIntervalQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdateIntervalByType(c.Request.Context(), c.Param("itemType"), intervalSeconds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"message":              "cleaning interval updated",
		"modified_count":       result.ModifiedCount,
		"item_type":            result.ItemType,
		"new_interval_seconds": result.NewIntervalSeconds,
	}, nil)
}

// Archive godoc
// @Summary Archive a clothing item
// @Tags ClothingItems
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/{id}/archive [put]
func (h *ItemHandler) Archive(c *gin.Context) {
	item, err := h.service.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Unarchive godoc
// @Summary Restore an archived clothing item
// @Tags ClothingItems
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /clothing-items/{id}/unarchive [put]
func (h *ItemHandler) Unarchive(c *gin.Context) {
	item, err := h.service.Unarchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func parsePage(c *gin.Context) (models.ItemPage, error) {
	skip, err := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)
	if err != nil || skip < 0 {
		return models.ItemPage{}, appErrors.Clone(appErrors.ErrValidation, "skip must be a non-negative integer")
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil || limit < 1 || limit > 1000 {
		return models.ItemPage{}, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 1000")
	}
	return models.ItemPage{Skip: skip, Limit: limit}, nil
}

func parseIntervalQuery(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Query("cleaning_interval_seconds"))
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "cleaning_interval_seconds is required")
	}
	intervalSeconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "cleaning_interval_seconds must be an integer")
	}
	return intervalSeconds, nil
}

func groupByType(items []models.ClothingItem) map[string][]models.ClothingItem {
	grouped := make(map[string][]models.ClothingItem)
	for _, item := range items {
		grouped[item.ItemType] = append(grouped[item.ItemType], item)
	}
	return grouped
}

func paginationFor(page models.ItemPage, count int) *models.Pagination {
	return &models.Pagination{Skip: page.Skip, Limit: page.Limit, Count: count}
}
