package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/dhobighat/api/internal/models"
	"github.com/dhobighat/api/internal/schedule"
)

// ItemRepository manages persistence for clothing item documents. Every read
// path normalizes raw documents before handing them to callers, so records
// written by older schema versions still satisfy the full item contract.
type ItemRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

// NewItemRepository constructs an ItemRepository around the given collection.
func NewItemRepository(col *mongo.Collection, logger *zap.Logger) *ItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemRepository{col: col, logger: logger}
}

// Create inserts a new item, deriving next_cleaning_date from the item's
// last_cleaned and interval, and returns the stored record.
func (r *ItemRepository) Create(ctx context.Context, item *models.ClothingItem) (*models.ClothingItem, error) {
	doc := bson.M{
		"name":                      item.Name,
		"clothingItemType":          item.ItemType,
		"image":                     item.Image,
		"last_cleaned":              item.LastCleaned,
		"cleaning_interval_seconds": item.CleaningIntervalSeconds,
		"next_cleaning_date":        schedule.NextCleaningDate(item.LastCleaned, item.CleaningIntervalSeconds),
		"is_archived":               item.IsArchived,
	}

	result, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert clothing item: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}

	return r.findByObjectID(ctx, oid)
}

// FindByID fetches a single item by its hex identifier. A malformed
// identifier behaves like a missing record.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.ClothingItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}
	return r.findByObjectID(ctx, oid)
}

// List returns items with pagination, excluding archived ones unless asked.
func (r *ItemRepository) List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error) {
	query := bson.M{}
	if !includeArchived {
		excludeArchived(query)
	}
	return r.find(ctx, query, page)
}

// SearchByName matches items whose name contains the substring,
// case-insensitively. Archived items are excluded.
func (r *ItemRepository) SearchByName(ctx context.Context, name string, page models.ItemPage) ([]models.ClothingItem, error) {
	query := bson.M{"name": caseInsensitive(name)}
	excludeArchived(query)
	return r.find(ctx, query, page)
}

// FilterByType matches items whose type contains the substring,
// case-insensitively. Archived items are excluded.
func (r *ItemRepository) FilterByType(ctx context.Context, itemType string, page models.ItemPage) ([]models.ClothingItem, error) {
	query := bson.M{"clothingItemType": caseInsensitive(itemType)}
	excludeArchived(query)
	return r.find(ctx, query, page)
}

// NeedingCleaning returns unarchived items whose next cleaning date has
// passed (next_cleaning_date <= now, inclusive).
func (r *ItemRepository) NeedingCleaning(ctx context.Context, now time.Time, page models.ItemPage) ([]models.ClothingItem, error) {
	query := bson.M{"next_cleaning_date": bson.M{"$lte": now}}
	excludeArchived(query)
	return r.find(ctx, query, page)
}

// RecentlyCleaned returns unarchived items cleaned at or after the cutoff.
func (r *ItemRepository) RecentlyCleaned(ctx context.Context, cutoff time.Time, page models.ItemPage) ([]models.ClothingItem, error) {
	query := bson.M{"last_cleaned": bson.M{"$gte": cutoff}}
	excludeArchived(query)
	return r.find(ctx, query, page)
}

// ListArchived returns only archived items.
func (r *ItemRepository) ListArchived(ctx context.Context, page models.ItemPage) ([]models.ClothingItem, error) {
	return r.find(ctx, bson.M{"is_archived": true}, page)
}

// UpdateInterval sets a new cleaning interval on one item, recomputing
// next_cleaning_date from the item's existing last_cleaned. Both fields are
// written in a single update so the derived-date invariant holds.
func (r *ItemRepository) UpdateInterval(ctx context.Context, id string, intervalSeconds int64) (*models.ClothingItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var raw bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		return nil, err
	}

	lastCleaned := asTime(normalizeItemDoc(raw)["last_cleaned"])
	update := bson.M{"$set": bson.M{
		"cleaning_interval_seconds": intervalSeconds,
		"next_cleaning_date":        schedule.NextCleaningDate(lastCleaned, intervalSeconds),
	}}
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update); err != nil {
		return nil, fmt.Errorf("update cleaning interval: %w", err)
	}

	return r.findByObjectID(ctx, oid)
}

// UpdateIntervalByType applies the new interval to every item of the given
// type. Each document is updated individually because its recomputed
// next_cleaning_date depends on its own last_cleaned; one failing update does
// not abort the rest. The returned count covers documents actually modified,
// so items already at the target interval are matched but not counted.
func (r *ItemRepository) UpdateIntervalByType(ctx context.Context, itemType string, intervalSeconds int64) (*models.TypeIntervalUpdate, error) {
	cursor, err := r.col.Find(ctx, bson.M{"clothingItemType": caseInsensitive(itemType)})
	if err != nil {
		return nil, fmt.Errorf("find items by type: %w", err)
	}
	defer cursor.Close(ctx)

	var modified int64
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			r.logger.Warn("skipping undecodable item document", zap.Error(err))
			continue
		}
		oid, ok := raw["_id"].(primitive.ObjectID)
		if !ok {
			continue
		}

		lastCleaned := asTime(normalizeItemDoc(raw)["last_cleaned"])
		update := bson.M{"$set": bson.M{
			"cleaning_interval_seconds": intervalSeconds,
			"next_cleaning_date":        schedule.NextCleaningDate(lastCleaned, intervalSeconds),
		}}
		result, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
		if err != nil {
			r.logger.Warn("interval update failed for item", zap.String("id", oid.Hex()), zap.Error(err))
			continue
		}
		if result.ModifiedCount > 0 {
			modified++
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate items by type: %w", err)
	}

	return &models.TypeIntervalUpdate{
		ModifiedCount:      modified,
		ItemType:           itemType,
		NewIntervalSeconds: intervalSeconds,
	}, nil
}

// SetArchived toggles the archival flag without touching any other field.
func (r *ItemRepository) SetArchived(ctx context.Context, id string, archived bool) (*models.ClothingItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	result, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"is_archived": archived}})
	if err != nil {
		return nil, fmt.Errorf("set archived flag: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}

	return r.findByObjectID(ctx, oid)
}

func (r *ItemRepository) findByObjectID(ctx context.Context, oid primitive.ObjectID) (*models.ClothingItem, error) {
	var raw bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		return nil, err
	}
	item := itemFromDoc(normalizeItemDoc(raw))
	return &item, nil
}

func (r *ItemRepository) find(ctx context.Context, query bson.M, page models.ItemPage) ([]models.ClothingItem, error) {
	opts := options.Find().SetSkip(page.Skip).SetLimit(page.Limit)
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find clothing items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.ClothingItem, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode clothing item: %w", err)
		}
		items = append(items, itemFromDoc(normalizeItemDoc(raw)))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate clothing items: %w", err)
	}

	return items, nil
}

// excludeArchived filters out archived documents. The negated form matches
// legacy documents that predate the is_archived field.
func excludeArchived(query bson.M) {
	query["is_archived"] = bson.M{"$ne": true}
}

func caseInsensitive(substring string) primitive.Regex {
	return primitive.Regex{Pattern: substring, Options: "i"}
}
