package equipment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type equipmentModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssetID           *string   `gorm:"type:text;uniqueIndex"`
	Name              string    `gorm:"type:text;not null"`
	Manufacturer      string    `gorm:"type:text;not null"`
	Model             string    `gorm:"type:text;not null"`
	MiscIdentifier    *string   `gorm:"type:text"`
	Amount            int64     `gorm:"type:bigint;not null"`
	Location          string    `gorm:"type:text;not null;index"`
	LocationSpecifier *string   `gorm:"type:text"`
	Manager           string    `gorm:"type:text;not null;index"`
	Date              int64     `gorm:"type:bigint;not null"`
	Category          string    `gorm:"type:text;not null"`
}

func (equipmentModel) TableName() string { return "equipment" }

func (m equipmentModel) toAPI() Equipment {
	return Equipment{
		ID:                m.ID,
		AssetID:           m.AssetID,
		Name:              m.Name,
		Manufacturer:      m.Manufacturer,
		Model:             m.Model,
		MiscIdentifier:    m.MiscIdentifier,
		Amount:            m.Amount,
		Location:          m.Location,
		LocationSpecifier: m.LocationSpecifier,
		Manager:           m.Manager,
		Date:              m.Date,
		Category:          m.Category,
	}
}

// changelogModel is the append-only activity record written alongside
// creates and deletes.
type changelogModel struct {
	ID       int64             `gorm:"type:bigserial;primaryKey"`
	RecordID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Action   string            `gorm:"type:text;not null"`
	Details  datatypes.JSONMap `gorm:"type:jsonb"`
	At       time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (changelogModel) TableName() string { return "changelog" }
