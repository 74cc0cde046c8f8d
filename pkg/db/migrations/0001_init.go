package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Equipment struct {
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

func (Equipment) TableName() string { return "equipment" }

type Changelog struct {
	ID       int64             `gorm:"type:bigserial;primaryKey"`
	RecordID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Action   string            `gorm:"type:text;not null"`
	Details  datatypes.JSONMap `gorm:"type:jsonb"`
	At       time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (Changelog) TableName() string { return "changelog" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&Equipment{},
		&Changelog{},
	); err != nil {
		return err
	}

	// Combined text index over the searchable columns. Queries fold all
	// supplied text terms into one predicate against this vector.
	statements := []string{
		`ALTER TABLE equipment ADD COLUMN IF NOT EXISTS search_vector tsvector
			GENERATED ALWAYS AS (to_tsvector('simple',
				coalesce(name, '') || ' ' ||
				coalesce(manufacturer, '') || ' ' ||
				coalesce(model, '') || ' ' ||
				coalesce(misc_identifier, '') || ' ' ||
				coalesce(location_specifier, '') || ' ' ||
				coalesce(category, '') || ' ' ||
				coalesce(asset_id, ''))) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_search_vector ON equipment USING gin (search_vector)`,
	}
	for _, stmt := range statements {
		if err := gormDB.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Changelog{},
		&Equipment{},
	)
}
