package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipd/internal/equipment"
)

func discoverMsg(assetType, assetID string) DiscoverMessage {
	return DiscoverMessage{
		Envelope:  Envelope{MsgID: 9, UserID: "user-3"},
		AssetType: assetType,
		AssetID:   assetID,
	}
}

func TestHandleDiscover(t *testing.T) {
	tests := []struct {
		name         string
		assetType    string
		wantModified int64
		wantRestrict int64
	}{
		{name: "venue counts referencing records", assetType: "venue", wantRestrict: 3},
		{name: "user counts managed records", assetType: "user", wantRestrict: 2},
		{name: "equipment counts the record itself", assetType: "equipment", wantModified: 1},
		{name: "unknown types answer zeros", assetType: "ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				countByLocationFn: func(location string) (int64, error) {
					assert.Equal(t, "asset-1", location)
					return 3, nil
				},
				countByManagerFn: func(manager string) (int64, error) {
					assert.Equal(t, "asset-1", manager)
					return 2, nil
				},
				countByIDFn: func(id string) (int64, error) {
					assert.Equal(t, "asset-1", id)
					return 1, nil
				},
			}
			d, _ := newTestDispatcher(t, store)

			reply := &capturedReply{}
			d.handleDiscover(mustMarshal(t, discoverMsg(tt.assetType, "asset-1")), reply.fn)

			resp, ok := reply.value.(DiscoverResponse)
			require.True(t, ok)
			assert.Equal(t, StatusSuccess, resp.Status)
			assert.Equal(t, int64(9), resp.MsgID)
			assert.Equal(t, "user-3", resp.UserID)
			assert.Equal(t, tt.wantModified, resp.Modified)
			assert.Equal(t, tt.wantRestrict, resp.Restrict)
		})
	}
}

func TestHandleDiscoverStoreFailure(t *testing.T) {
	store := &fakeStore{
		countByLocationFn: func(string) (int64, error) {
			return 0, errors.New("pool exhausted")
		},
	}
	d, window := newTestDispatcher(t, store)

	reply := &capturedReply{}
	d.handleDiscover(mustMarshal(t, discoverMsg("venue", "asset-1")), reply.fn)

	resp, ok := reply.value.(DiscoverResponse)
	require.True(t, ok)
	assert.Equal(t, StatusInternalError, resp.Status)

	_, failures := window.Counts()
	assert.Equal(t, 1, failures)
}

func TestHandleRemove(t *testing.T) {
	t.Run("deletes equipment and reports the count", func(t *testing.T) {
		store := &fakeStore{
			deleteFn: func(req equipment.DeleteRequest) ([]string, error) {
				assert.Equal(t, "asset-1", req.ID)
				return []string{"asset-1"}, nil
			},
		}
		d, _ := newTestDispatcher(t, store)

		reply := &capturedReply{}
		d.handleRemove(mustMarshal(t, discoverMsg("equipment", "asset-1")), reply.fn)

		resp, ok := reply.value.(RemoveResponse)
		require.True(t, ok)
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.True(t, resp.Successful)
		assert.Equal(t, int64(1), resp.Modified)
	})

	t.Run("already-gone targets still succeed", func(t *testing.T) {
		store := &fakeStore{
			deleteFn: func(equipment.DeleteRequest) ([]string, error) {
				return nil, equipment.NewClientError("invalid entity ID")
			},
		}
		d, window := newTestDispatcher(t, store)

		reply := &capturedReply{}
		d.handleRemove(mustMarshal(t, discoverMsg("equipment", "asset-1")), reply.fn)

		resp, ok := reply.value.(RemoveResponse)
		require.True(t, ok)
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.True(t, resp.Successful)
		assert.Zero(t, resp.Modified)

		successes, _ := window.Counts()
		assert.Equal(t, 1, successes)
	})

	t.Run("other asset types are a no-op", func(t *testing.T) {
		store := &fakeStore{}
		d, _ := newTestDispatcher(t, store)

		reply := &capturedReply{}
		d.handleRemove(mustMarshal(t, discoverMsg("venue", "asset-1")), reply.fn)

		resp, ok := reply.value.(RemoveResponse)
		require.True(t, ok)
		assert.True(t, resp.Successful)
		assert.Zero(t, resp.Modified)
		assert.Zero(t, store.calls)
	})

	t.Run("infrastructure failures surface as internal errors", func(t *testing.T) {
		store := &fakeStore{
			deleteFn: func(equipment.DeleteRequest) ([]string, error) {
				return nil, errors.New("connection reset")
			},
		}
		d, window := newTestDispatcher(t, store)

		reply := &capturedReply{}
		d.handleRemove(mustMarshal(t, discoverMsg("equipment", "asset-1")), reply.fn)

		resp, ok := reply.value.(RemoveResponse)
		require.True(t, ok)
		assert.Equal(t, StatusInternalError, resp.Status)
		assert.False(t, resp.Successful)

		_, failures := window.Counts()
		assert.Equal(t, 1, failures)
	})
}
