package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClothingItem is a tracked garment with a recurring cleaning schedule.
// NextCleaningDate is derived: it always equals LastCleaned plus the
// cleaning interval and is recomputed whenever either input changes.
type ClothingItem struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                    string             `bson:"name" json:"name"`
	ItemType                string             `bson:"clothingItemType" json:"clothingItemType"`
	Image                   string             `bson:"image" json:"image"`
	LastCleaned             time.Time          `bson:"last_cleaned" json:"last_cleaned"`
	CleaningIntervalSeconds int64              `bson:"cleaning_interval_seconds" json:"cleaning_interval_seconds"`
	NextCleaningDate        time.Time          `bson:"next_cleaning_date" json:"next_cleaning_date"`
	IsArchived              bool               `bson:"is_archived" json:"is_archived"`
}

// ItemPage holds skip/limit pagination parameters for item listings.
type ItemPage struct {
	Skip  int64
	Limit int64
}

// TypeIntervalUpdate summarises a bulk interval change across one item type.
// ModifiedCount reflects documents whose stored fields actually changed, not
// the number matched.
type TypeIntervalUpdate struct {
	ModifiedCount      int64  `json:"modified_count"`
	ItemType           string `json:"item_type"`
	NewIntervalSeconds int64  `json:"new_interval_seconds"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Skip  int64 `json:"skip"`
	Limit int64 `json:"limit"`
	Count int   `json:"count"`
}
