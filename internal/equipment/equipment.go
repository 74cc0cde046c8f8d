package equipment

import "github.com/google/uuid"

// Equipment models one inventory record as it is returned to callers.
// Persistence-internal columns never appear on this type.
type Equipment struct {
	ID                uuid.UUID `json:"id"`
	AssetID           *string   `json:"assetID,omitempty"`
	Name              string    `json:"name"`
	Manufacturer      string    `json:"manufacturer"`
	Model             string    `json:"model"`
	MiscIdentifier    *string   `json:"miscIdentifier,omitempty"`
	Amount            int64     `json:"amount"`
	Location          string    `json:"location"`
	LocationSpecifier *string   `json:"locationSpecifier,omitempty"`
	Manager           string    `json:"manager"`
	Date              int64     `json:"date"`
	Category          string    `json:"category"`
}

// CreateRequest carries the fields for a new record. The store assigns the
// id and the creation date; anything outside this struct is discarded
// before persistence.
type CreateRequest struct {
	AssetID           *string
	Name              string
	Manufacturer      string
	Model             string
	MiscIdentifier    *string
	Amount            int64
	Location          string
	LocationSpecifier *string
	Manager           string
	Category          string
}

// QueryRequest describes a record lookup. Nil fields are absent from the
// filter, so the zero request matches every record.
type QueryRequest struct {
	ID                *string
	AssetID           *string
	Name              *string
	Manufacturer      *string
	Model             *string
	MiscIdentifier    *string
	LocationSpecifier *string
	Category          *string
	Amount            *int64
	Location          *string
	Manager           *string
	Date              *int64
}

// UpdateRequest describes a partial mutation. Presence is explicit: a nil
// field is untouched, a non-nil field is written even when it holds the
// type's zero value.
type UpdateRequest struct {
	ID                string
	AssetID           *string
	Name              *string
	Manufacturer      *string
	Model             *string
	MiscIdentifier    *string
	Amount            *int64
	Location          *string
	LocationSpecifier *string
	Manager           *string
	Category          *string
}

// DeleteRequest identifies the record to remove.
type DeleteRequest struct {
	ID string
}
