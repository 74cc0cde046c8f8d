package dispatch

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"equipd/internal/equipment"
	"equipd/pkg/bus"
)

// Asset types other services probe for before cascading deletes.
const (
	assetTypeVenue     = "venue"
	assetTypeUser      = "user"
	assetTypeEquipment = "equipment"
)

// DiscoverMessage asks how many equipment records reference another
// service's entity.
type DiscoverMessage struct {
	Envelope

	AssetType string `json:"assetType"`
	AssetID   string `json:"assetID"`
}

// DiscoverResponse reports the affected record counts. Modified counts
// records that would be structurally changed; Restrict counts records that
// merely reference the asset.
type DiscoverResponse struct {
	UserID       string `json:"userID"`
	Status       int    `json:"status"`
	MsgID        int64  `json:"msg_id"`
	MsgIntention string `json:"msg_intention"`
	Modified     int64  `json:"modified"`
	Restrict     int64  `json:"restrict"`
}

// RemoveResponse reports a cascading cleanup. Removal is idempotent, so
// Successful holds even when nothing was deleted.
type RemoveResponse struct {
	UserID       string `json:"userID"`
	Status       int    `json:"status"`
	MsgID        int64  `json:"msg_id"`
	MsgIntention string `json:"msg_intention"`
	Restrict     int64  `json:"restrict"`
	Modified     int64  `json:"modified"`
	Successful   bool   `json:"successful"`
}

func (d *Dispatcher) handleDiscover(data []byte, reply bus.ReplyFunc) {
	ctx, span := d.tracer.Start(context.Background(), "equipment.discover")
	defer span.End()

	var msg DiscoverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.log.Error().Err(err).Msg("discarding undecodable discover message")
		d.window.Record(false)
		return
	}

	span.SetAttributes(
		attribute.String("asset.type", msg.AssetType),
		attribute.String("asset.id", msg.AssetID),
	)

	var (
		modified int64
		restrict int64
		err      error
	)

	switch msg.AssetType {
	case assetTypeVenue:
		restrict, err = d.store.CountByLocation(ctx, msg.AssetID)
	case assetTypeUser:
		restrict, err = d.store.CountByManager(ctx, msg.AssetID)
	case assetTypeEquipment:
		modified, err = d.store.CountByID(ctx, msg.AssetID)
	default:
		// Unknown asset types are a safe empty answer, not an error.
	}

	if err != nil {
		d.log.Error().Err(err).
			Str("asset_type", msg.AssetType).
			Msg("discover probe failed")

		d.reply(reply, DiscoverResponse{
			UserID:       msg.UserID,
			Status:       StatusInternalError,
			MsgID:        msg.MsgID,
			MsgIntention: IntentionRead,
		})
		d.window.Record(false)
		return
	}

	d.reply(reply, DiscoverResponse{
		UserID:       msg.UserID,
		Status:       StatusSuccess,
		MsgID:        msg.MsgID,
		MsgIntention: IntentionRead,
		Modified:     modified,
		Restrict:     restrict,
	})
	d.window.Record(true)
}

func (d *Dispatcher) handleRemove(data []byte, reply bus.ReplyFunc) {
	ctx, span := d.tracer.Start(context.Background(), "equipment.remove")
	defer span.End()

	var msg DiscoverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.log.Error().Err(err).Msg("discarding undecodable remove message")
		d.window.Record(false)
		return
	}

	span.SetAttributes(
		attribute.String("asset.type", msg.AssetType),
		attribute.String("asset.id", msg.AssetID),
	)

	var modified int64

	if msg.AssetType == assetTypeEquipment {
		ids, err := d.store.Delete(ctx, equipment.DeleteRequest{ID: msg.AssetID})
		switch {
		case equipment.IsClientError(err):
			// Target already gone. Cascading cleanup treats that as done.
		case err != nil:
			d.log.Error().Err(err).
				Str("asset_id", msg.AssetID).
				Msg("cascading delete failed")

			d.reply(reply, RemoveResponse{
				UserID:       msg.UserID,
				Status:       StatusInternalError,
				MsgID:        msg.MsgID,
				MsgIntention: IntentionDelete,
			})
			d.window.Record(false)
			return
		default:
			modified = int64(len(ids))
		}
	}

	d.reply(reply, RemoveResponse{
		UserID:       msg.UserID,
		Status:       StatusSuccess,
		MsgID:        msg.MsgID,
		MsgIntention: IntentionDelete,
		Modified:     modified,
		Successful:   true,
	})
	d.window.Record(true)
}
