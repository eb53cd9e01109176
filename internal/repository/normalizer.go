package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dhobighat/api/internal/models"
	"github.com/dhobighat/api/internal/schedule"
)

// fieldRule repairs one canonical field: if the canonical key is absent the
// first present alternate key fills it, otherwise the fallback supplies a
// value. Fallbacks run after earlier rules, so the next_cleaning_date rule
// may rely on last_cleaned and cleaning_interval_seconds already existing.
type fieldRule struct {
	canonical  string
	alternates []string
	fallback   func(doc bson.M) interface{}
}

// itemFieldRules are evaluated in order against raw stored documents.
// Adding a new alternate spelling is a data change here, not a code change.
var itemFieldRules = []fieldRule{
	{
		canonical:  "clothingItemType",
		alternates: []string{"clothing_item_type", "type"},
		fallback:   func(bson.M) interface{} { return "unknown" },
	},
	{
		canonical:  "last_cleaned",
		alternates: []string{"lastCleaned"},
		fallback:   func(bson.M) interface{} { return time.Now().UTC() },
	},
	{
		canonical:  "cleaning_interval_seconds",
		alternates: []string{"cleaningIntervalSeconds"},
		fallback:   func(bson.M) interface{} { return schedule.DefaultIntervalSeconds },
	},
	{
		canonical:  "next_cleaning_date",
		alternates: []string{"nextCleaningDate"},
		fallback: func(doc bson.M) interface{} {
			return schedule.NextCleaningDate(asTime(doc["last_cleaned"]), asInt64(doc["cleaning_interval_seconds"]))
		},
	},
	{
		canonical: "image",
		fallback:  func(bson.M) interface{} { return "" },
	},
	{
		canonical: "is_archived",
		fallback:  func(bson.M) interface{} { return false },
	},
}

// normalizeItemDoc repairs a raw stored document into the canonical shape.
// It never fails and performs no I/O; already-normalized documents come back
// unchanged, so the operation is idempotent.
func normalizeItemDoc(doc bson.M) bson.M {
	normalized := make(bson.M, len(doc))
	for key, value := range doc {
		normalized[key] = value
	}

	for _, rule := range itemFieldRules {
		if _, ok := normalized[rule.canonical]; ok {
			continue
		}
		filled := false
		for _, alt := range rule.alternates {
			if value, ok := normalized[alt]; ok {
				normalized[rule.canonical] = value
				filled = true
				break
			}
		}
		if !filled {
			normalized[rule.canonical] = rule.fallback(normalized)
		}
	}

	return normalized
}

// itemFromDoc converts a normalized document into the domain model.
func itemFromDoc(doc bson.M) models.ClothingItem {
	item := models.ClothingItem{
		Name:                    asString(doc["name"]),
		ItemType:                asString(doc["clothingItemType"]),
		Image:                   asString(doc["image"]),
		LastCleaned:             asTime(doc["last_cleaned"]),
		CleaningIntervalSeconds: asInt64(doc["cleaning_interval_seconds"]),
		NextCleaningDate:        asTime(doc["next_cleaning_date"]),
		IsArchived:              asBool(doc["is_archived"]),
	}
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		item.ID = oid
	}
	return item
}

// The coercion helpers below tolerate both driver-decoded BSON values and
// native Go values so normalization can run on documents regardless of where
// they came from.

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return time.Time{}
	}
}
