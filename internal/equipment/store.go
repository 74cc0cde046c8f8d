package equipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"equipd/pkg/db"
)

// Error messages returned to callers on domain violations. The wording is
// part of the service contract; callers branch on it.
const (
	msgDuplicateAsset       = "duplicate asset id"
	msgDuplicateAssetUpdate = "cannot update to existing asset id"
	msgInvalidEntity        = "invalid entity ID"
	msgNoOperations         = "no operations provided"
)

// Store owns the persisted equipment collection. CRUD goes through the ORM;
// the pgx pool serves the aggregate count queries and health pings.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB

	log zerolog.Logger
}

// NewStore constructs a Store around the provided connections. The pool may
// be nil in unit tests; the ORM handle is required.
func NewStore(pool *pgxpool.Pool, orm *gorm.DB, logger zerolog.Logger) (*Store, error) {
	if orm == nil {
		return nil, errors.New("orm handle is required")
	}

	return &Store{
		DB:  pool,
		ORM: orm,
		log: logger.With().Str("component", "equipment-store").Logger(),
	}, nil
}

// Create persists a new record and returns its generated id. A supplied
// assetID that already exists on another record is a client error.
func (s *Store) Create(ctx context.Context, req CreateRequest) ([]string, error) {
	model := equipmentModel{
		ID:                uuid.New(),
		AssetID:           normalizeAssetID(req.AssetID),
		Name:              req.Name,
		Manufacturer:      req.Manufacturer,
		Model:             req.Model,
		MiscIdentifier:    req.MiscIdentifier,
		Amount:            req.Amount,
		Location:          req.Location,
		LocationSpecifier: req.LocationSpecifier,
		Manager:           req.Manager,
		Date:              time.Now().UnixMilli(),
		Category:          req.Category,
	}

	if err := s.ORM.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewClientError(msgDuplicateAsset)
		}
		return nil, err
	}

	s.logChange(ctx, model.ID, "inserted", datatypes.JSONMap{"name": model.Name})

	return []string{model.ID.String()}, nil
}

// Query returns every record matching the request, always projected as the
// full Equipment shape. A malformed id is a hard error, distinct from a
// well-formed id with no match, which yields an empty list.
func (s *Store) Query(ctx context.Context, req QueryRequest) ([]Equipment, error) {
	tx := s.ORM.WithContext(ctx).Model(&equipmentModel{})

	if req.ID != nil {
		id, err := uuid.Parse(*req.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid query id: %w", err)
		}
		tx = tx.Where("id = ?", id)
	}

	if predicate, args := textPredicate(collectSearchTerms(req)); predicate != "" {
		tx = tx.Where(predicate, args...)
	}

	if req.Amount != nil {
		tx = tx.Where("amount = ?", *req.Amount)
	}
	if req.Location != nil {
		tx = tx.Where("location = ?", *req.Location)
	}
	if req.Manager != nil {
		tx = tx.Where("manager = ?", *req.Manager)
	}
	if req.Date != nil {
		tx = tx.Where("date = ?", *req.Date)
	}

	var models []equipmentModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]Equipment, 0, len(models))
	for _, m := range models {
		records = append(records, m.toAPI())
	}
	return records, nil
}

// Update merges the supplied fields into an existing record. The id and
// creation date never change. Updating to an assetID held by another record
// and updating an unknown id are client errors, as is an empty change-set.
func (s *Store) Update(ctx context.Context, req UpdateRequest) ([]string, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid update id: %w", err)
	}

	updates := buildUpdates(req)
	if len(updates) == 0 {
		return nil, NewClientError(msgNoOperations)
	}

	res := s.ORM.WithContext(ctx).Model(&equipmentModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, NewClientError(msgDuplicateAssetUpdate)
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NewClientError(msgInvalidEntity)
	}

	return []string{req.ID}, nil
}

// Delete removes the record with the given id. Deleting an unknown id is a
// client error rather than a silent no-op.
func (s *Store) Delete(ctx context.Context, req DeleteRequest) ([]string, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid delete id: %w", err)
	}

	res := s.ORM.WithContext(ctx).Where("id = ?", id).Delete(&equipmentModel{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, NewClientError(msgInvalidEntity)
	}

	s.logChange(ctx, id, "deleted", nil)

	return []string{req.ID}, nil
}

// CountByLocation reports how many records reference the given venue.
func (s *Store) CountByLocation(ctx context.Context, location string) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM equipment WHERE location = $1`, location)
}

// CountByManager reports how many records reference the given user.
func (s *Store) CountByManager(ctx context.Context, manager string) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM equipment WHERE manager = $1`, manager)
}

// CountByID reports whether a record with the given id exists. Malformed
// ids count as zero; discovery probes expect a safe empty answer.
func (s *Store) CountByID(ctx context.Context, rawID string) (int64, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return 0, nil
	}
	return s.count(ctx, `SELECT count(*) FROM equipment WHERE id = $1`, id)
}

func (s *Store) count(ctx context.Context, query string, arg any) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("count queries require a database pool")
	}

	var n int64
	if err := db.Get(ctx, s.DB, &n, query, arg); err != nil {
		return 0, err
	}
	return n, nil
}

// logChange appends an activity record. The changelog is a best-effort
// side channel: failures are logged and never fail the operation itself.
func (s *Store) logChange(ctx context.Context, recordID uuid.UUID, action string, details datatypes.JSONMap) {
	entry := changelogModel{
		RecordID: recordID,
		Action:   action,
		Details:  details,
	}

	if err := s.ORM.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn().Err(err).
			Str("record_id", recordID.String()).
			Str("action", action).
			Msg("failed to append changelog entry")
	}
}
