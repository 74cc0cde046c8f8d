package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipd/internal/equipment"
)

type fakeStore struct {
	createFn func(equipment.CreateRequest) ([]string, error)
	queryFn  func(equipment.QueryRequest) ([]equipment.Equipment, error)
	updateFn func(equipment.UpdateRequest) ([]string, error)
	deleteFn func(equipment.DeleteRequest) ([]string, error)

	countByLocationFn func(string) (int64, error)
	countByManagerFn  func(string) (int64, error)
	countByIDFn       func(string) (int64, error)

	calls int
}

func (f *fakeStore) Create(_ context.Context, req equipment.CreateRequest) ([]string, error) {
	f.calls++
	return f.createFn(req)
}

func (f *fakeStore) Query(_ context.Context, req equipment.QueryRequest) ([]equipment.Equipment, error) {
	f.calls++
	return f.queryFn(req)
}

func (f *fakeStore) Update(_ context.Context, req equipment.UpdateRequest) ([]string, error) {
	f.calls++
	return f.updateFn(req)
}

func (f *fakeStore) Delete(_ context.Context, req equipment.DeleteRequest) ([]string, error) {
	f.calls++
	return f.deleteFn(req)
}

func (f *fakeStore) CountByLocation(_ context.Context, location string) (int64, error) {
	f.calls++
	return f.countByLocationFn(location)
}

func (f *fakeStore) CountByManager(_ context.Context, manager string) (int64, error) {
	f.calls++
	return f.countByManagerFn(manager)
}

func (f *fakeStore) CountByID(_ context.Context, id string) (int64, error) {
	f.calls++
	return f.countByIDFn(id)
}

type capturedReply struct {
	sent  bool
	value any
}

func (c *capturedReply) fn(v any) error {
	c.sent = true
	c.value = v
	return nil
}

func newTestDispatcher(t *testing.T, store *fakeStore) (*Dispatcher, *Window) {
	t.Helper()

	window := NewWindow(DefaultFailureThreshold, nil)
	d, err := New(store, window, zerolog.Nop())
	require.NoError(t, err)
	return d, window
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, NewWindow(0, nil), zerolog.Nop())
	require.Error(t, err)
}

func TestHandleOperationCreate(t *testing.T) {
	store := &fakeStore{
		createFn: func(req equipment.CreateRequest) ([]string, error) {
			assert.Equal(t, "drill", req.Name)
			// Manager defaults from the envelope's userID.
			assert.Equal(t, "user-7", req.Manager)
			return []string{"id-1"}, nil
		},
	}
	d, window := newTestDispatcher(t, store)

	msg := OperationMessage{Envelope: Envelope{MsgID: 42, MsgIntention: IntentionCreate, UserID: "user-7"}}
	name := "drill"
	msg.Name = &name

	reply := &capturedReply{}
	d.handleOperation(mustMarshal(t, msg), reply.fn)

	require.True(t, reply.sent)
	resp, ok := reply.value.(OperationResponse)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, IntentionCreate, resp.MsgIntention)
	assert.Equal(t, int64(42), resp.MsgID)
	assert.Equal(t, "user-7", resp.UserID)
	assert.Equal(t, []string{"id-1"}, resp.Result)

	successes, failures := window.Counts()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
}

func TestHandleOperationRead(t *testing.T) {
	records := []equipment.Equipment{{Name: "drill", Manufacturer: "acme"}}
	store := &fakeStore{
		queryFn: func(req equipment.QueryRequest) ([]equipment.Equipment, error) {
			require.NotNil(t, req.Name)
			assert.Equal(t, "drill", *req.Name)
			return records, nil
		},
	}
	d, _ := newTestDispatcher(t, store)

	msg := OperationMessage{Envelope: Envelope{MsgIntention: IntentionRead, UserID: "u"}}
	name := "drill"
	msg.Name = &name

	reply := &capturedReply{}
	d.handleOperation(mustMarshal(t, msg), reply.fn)

	resp, ok := reply.value.(ReadResponse)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, records, resp.Result)
}

func TestHandleOperationClientError(t *testing.T) {
	store := &fakeStore{
		updateFn: func(equipment.UpdateRequest) ([]string, error) {
			return nil, equipment.NewClientError("cannot update to existing asset id")
		},
	}
	d, window := newTestDispatcher(t, store)

	msg := OperationMessage{Envelope: Envelope{MsgIntention: IntentionUpdate, UserID: "u"}}
	id := "some-id"
	msg.ID = &id

	reply := &capturedReply{}
	d.handleOperation(mustMarshal(t, msg), reply.fn)

	resp, ok := reply.value.(OperationResponse)
	require.True(t, ok)
	assert.Equal(t, StatusFail, resp.Status)
	assert.Equal(t, []string{"cannot update to existing asset id"}, resp.Result)

	successes, failures := window.Counts()
	assert.Equal(t, 0, successes)
	assert.Equal(t, 1, failures)
}

func TestHandleOperationInternalErrorIsMasked(t *testing.T) {
	store := &fakeStore{
		deleteFn: func(equipment.DeleteRequest) ([]string, error) {
			return nil, errors.New("connection refused to 10.0.0.5:5432")
		},
	}
	d, window := newTestDispatcher(t, store)

	msg := OperationMessage{Envelope: Envelope{MsgIntention: IntentionDelete, UserID: "u"}}

	reply := &capturedReply{}
	d.handleOperation(mustMarshal(t, msg), reply.fn)

	resp, ok := reply.value.(OperationResponse)
	require.True(t, ok)
	assert.Equal(t, StatusInternalError, resp.Status)
	assert.Equal(t, []string{"internal server error"}, resp.Result)

	_, failures := window.Counts()
	assert.Equal(t, 1, failures)
}

func TestHandleOperationUnknownIntention(t *testing.T) {
	store := &fakeStore{}
	d, window := newTestDispatcher(t, store)

	msg := OperationMessage{Envelope: Envelope{MsgIntention: "PURGE", UserID: "u", MsgID: 7}}

	reply := &capturedReply{}
	d.handleOperation(mustMarshal(t, msg), reply.fn)

	resp, ok := reply.value.(OperationResponse)
	require.True(t, ok)
	assert.Equal(t, StatusNotImplemented, resp.Status)
	assert.Equal(t, "PURGE", resp.MsgIntention)
	assert.Empty(t, resp.Result)
	assert.Zero(t, store.calls)

	_, failures := window.Counts()
	assert.Equal(t, 1, failures)
}

func TestHandleOperationUndecodableMessage(t *testing.T) {
	store := &fakeStore{}
	d, window := newTestDispatcher(t, store)

	reply := &capturedReply{}
	d.handleOperation([]byte("{not json"), reply.fn)

	assert.False(t, reply.sent)
	assert.Zero(t, store.calls)

	_, failures := window.Counts()
	assert.Equal(t, 1, failures)
}
