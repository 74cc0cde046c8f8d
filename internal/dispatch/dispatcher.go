package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"equipd/internal/equipment"
	"equipd/pkg/bus"
)

// Routing labels appended to the subject prefix. Discovery probes share
// the dispatcher's inbound channel, distinguished by label.
const (
	labelRequest  = "request"
	labelDiscover = "discover"
	labelDelete   = "delete"
)

// EquipmentStore is the store surface the dispatcher drives. The concrete
// implementation lives in internal/equipment.
type EquipmentStore interface {
	Create(ctx context.Context, req equipment.CreateRequest) ([]string, error)
	Query(ctx context.Context, req equipment.QueryRequest) ([]equipment.Equipment, error)
	Update(ctx context.Context, req equipment.UpdateRequest) ([]string, error)
	Delete(ctx context.Context, req equipment.DeleteRequest) ([]string, error)
	CountByLocation(ctx context.Context, location string) (int64, error)
	CountByManager(ctx context.Context, manager string) (int64, error)
	CountByID(ctx context.Context, id string) (int64, error)
}

// Dispatcher routes inbound operation messages to the store, maps outcomes
// to reply messages, and feeds the rolling health window. Messages are
// independent units of work; nothing is ordered across them.
type Dispatcher struct {
	store  EquipmentStore
	window *Window
	log    zerolog.Logger
	tracer trace.Tracer

	subMu sync.Mutex
	subs  []io.Closer
}

// New constructs a Dispatcher. A missing store is an unrecoverable
// configuration error, not a per-request condition, so it is rejected here.
func New(store EquipmentStore, window *Window, logger zerolog.Logger) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("equipment store is required")
	}
	if window == nil {
		return nil, errors.New("health window is required")
	}

	return &Dispatcher{
		store:  store,
		window: window,
		log:    logger.With().Str("component", "dispatch").Logger(),
		tracer: otel.Tracer("equipd/dispatch"),
	}, nil
}

// Bind subscribes the dispatcher to its subjects on the provided bus.
// Subscriptions stay active until Close.
func (d *Dispatcher) Bind(b *bus.Bus, prefix, queue string) error {
	if d == nil {
		return errors.New("nil dispatcher")
	}
	if b == nil {
		return errors.New("bus is required")
	}

	bindings := []struct {
		label   string
		handler bus.Handler
	}{
		{labelRequest, d.handleOperation},
		{labelDiscover, d.handleDiscover},
		{labelDelete, d.handleRemove},
	}

	for _, binding := range bindings {
		subject := prefix + "." + binding.label
		sub, err := b.Subscribe(subject, queue, binding.handler)
		if err != nil {
			d.closeSubs()
			return err
		}

		d.subMu.Lock()
		d.subs = append(d.subs, sub)
		d.subMu.Unlock()

		d.log.Debug().Str("subject", subject).Msg("bound subject")
	}

	return nil
}

// Close drains every active subscription.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return d.closeSubs()
}

func (d *Dispatcher) closeSubs() error {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	var firstErr error
	for _, sub := range d.subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.subs = nil
	return firstErr
}

func (d *Dispatcher) handleOperation(data []byte, reply bus.ReplyFunc) {
	ctx, span := d.tracer.Start(context.Background(), "equipment.operation")
	defer span.End()

	var msg OperationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.log.Error().Err(err).Msg("discarding undecodable operation message")
		d.window.Record(false)
		return
	}

	span.SetAttributes(
		attribute.String("msg.intention", msg.MsgIntention),
		attribute.Int64("msg.id", msg.MsgID),
	)

	// Serving without a store is an unrecoverable configuration error.
	// Track the failure, then fail loudly rather than soldier on.
	if d.store == nil {
		d.window.Record(false)
		d.log.Error().Msg("operation received without an initialised store")
		panic("equipment store is not initialised")
	}

	var (
		ids     []string
		records []equipment.Equipment
		err     error
	)

	switch msg.MsgIntention {
	case IntentionCreate:
		ids, err = d.store.Create(ctx, msg.createRequest())
	case IntentionDelete:
		ids, err = d.store.Delete(ctx, msg.deleteRequest())
	case IntentionRead:
		records, err = d.store.Query(ctx, msg.queryRequest())
	case IntentionUpdate:
		ids, err = d.store.Update(ctx, msg.updateRequest())
	default:
		d.reply(reply, OperationResponse{
			MsgIntention: msg.MsgIntention,
			MsgID:        msg.MsgID,
			Status:       StatusNotImplemented,
			Result:       []string{},
			UserID:       msg.UserID,
		})
		d.window.Record(false)
		return
	}

	if err != nil {
		d.replyError(reply, msg, err)
		d.window.Record(false)
		return
	}

	if msg.MsgIntention == IntentionRead {
		d.reply(reply, ReadResponse{
			MsgIntention: msg.MsgIntention,
			MsgID:        msg.MsgID,
			Status:       StatusSuccess,
			Result:       records,
			UserID:       msg.UserID,
		})
	} else {
		d.reply(reply, OperationResponse{
			MsgIntention: msg.MsgIntention,
			MsgID:        msg.MsgID,
			Status:       StatusSuccess,
			Result:       ids,
			UserID:       msg.UserID,
		})
	}

	d.window.Record(true)
}

// replyError maps the two error tiers onto the wire: client-facing errors
// carry their message verbatim, anything else is masked and only logged.
func (d *Dispatcher) replyError(reply bus.ReplyFunc, msg OperationMessage, err error) {
	if equipment.IsClientError(err) {
		d.log.Warn().Err(err).
			Str("intention", msg.MsgIntention).
			Int64("msg_id", msg.MsgID).
			Msg("rejected operation")

		d.reply(reply, OperationResponse{
			MsgIntention: msg.MsgIntention,
			MsgID:        msg.MsgID,
			Status:       StatusFail,
			Result:       []string{err.Error()},
			UserID:       msg.UserID,
		})
		return
	}

	d.log.Error().Err(err).
		Str("intention", msg.MsgIntention).
		Int64("msg_id", msg.MsgID).
		Msg("operation failed")

	d.reply(reply, OperationResponse{
		MsgIntention: msg.MsgIntention,
		MsgID:        msg.MsgID,
		Status:       StatusInternalError,
		Result:       []string{"internal server error"},
		UserID:       msg.UserID,
	})
}

func (d *Dispatcher) reply(reply bus.ReplyFunc, v any) {
	if err := reply(v); err != nil {
		d.log.Error().Err(err).Msg("failed to send reply")
	}
}
