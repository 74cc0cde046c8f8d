package dispatch

import "equipd/internal/equipment"

// Message statuses callers branch on.
const (
	StatusSuccess        = 200
	StatusFail           = 405
	StatusInternalError  = 500
	StatusNotImplemented = 501
)

// Intention tags carried on every operation message.
const (
	IntentionCreate = "CREATE"
	IntentionRead   = "READ"
	IntentionUpdate = "UPDATE"
	IntentionDelete = "DELETE"
)

// Envelope is the transport framing shared by every inbound message.
type Envelope struct {
	MsgID        int64  `json:"msg_id"`
	MsgIntention string `json:"msg_intention"`
	Status       int    `json:"status"`
	UserID       string `json:"userID"`
}

// OperationMessage is a decoded CRUD request. Field presence is pointer
// based so partial filters and partial updates can tell "absent" apart
// from a supplied zero value. Unknown keys are dropped by decoding into
// this closed struct.
type OperationMessage struct {
	Envelope

	ID                *string `json:"id,omitempty"`
	AssetID           *string `json:"assetID,omitempty"`
	Name              *string `json:"name,omitempty"`
	Manufacturer      *string `json:"manufacturer,omitempty"`
	Model             *string `json:"model,omitempty"`
	MiscIdentifier    *string `json:"miscIdentifier,omitempty"`
	Amount            *int64  `json:"amount,omitempty"`
	Location          *string `json:"location,omitempty"`
	LocationSpecifier *string `json:"locationSpecifier,omitempty"`
	Manager           *string `json:"manager,omitempty"`
	Date              *int64  `json:"date,omitempty"`
	Category          *string `json:"category,omitempty"`
}

// OperationResponse answers CREATE/UPDATE/DELETE messages and every error
// path. Result holds affected record ids on success and a single error
// string on failure.
type OperationResponse struct {
	MsgIntention string   `json:"msg_intention"`
	MsgID        int64    `json:"msg_id"`
	Status       int      `json:"status"`
	Result       []string `json:"result"`
	UserID       string   `json:"userID"`
}

// ReadResponse answers READ messages with full record projections.
type ReadResponse struct {
	MsgIntention string                `json:"msg_intention"`
	MsgID        int64                 `json:"msg_id"`
	Status       int                   `json:"status"`
	Result       []equipment.Equipment `json:"result"`
	UserID       string                `json:"userID"`
}

func (m OperationMessage) createRequest() equipment.CreateRequest {
	req := equipment.CreateRequest{}
	if m.AssetID != nil {
		req.AssetID = m.AssetID
	}
	if m.Name != nil {
		req.Name = *m.Name
	}
	if m.Manufacturer != nil {
		req.Manufacturer = *m.Manufacturer
	}
	if m.Model != nil {
		req.Model = *m.Model
	}
	req.MiscIdentifier = m.MiscIdentifier
	if m.Amount != nil {
		req.Amount = *m.Amount
	}
	if m.Location != nil {
		req.Location = *m.Location
	}
	req.LocationSpecifier = m.LocationSpecifier
	if m.Category != nil {
		req.Category = *m.Category
	}

	// The record manager defaults to the requesting user.
	if m.Manager != nil {
		req.Manager = *m.Manager
	} else {
		req.Manager = m.UserID
	}

	return req
}

func (m OperationMessage) queryRequest() equipment.QueryRequest {
	return equipment.QueryRequest{
		ID:                m.ID,
		AssetID:           m.AssetID,
		Name:              m.Name,
		Manufacturer:      m.Manufacturer,
		Model:             m.Model,
		MiscIdentifier:    m.MiscIdentifier,
		LocationSpecifier: m.LocationSpecifier,
		Category:          m.Category,
		Amount:            m.Amount,
		Location:          m.Location,
		Manager:           m.Manager,
		Date:              m.Date,
	}
}

func (m OperationMessage) updateRequest() equipment.UpdateRequest {
	req := equipment.UpdateRequest{
		AssetID:           m.AssetID,
		Name:              m.Name,
		Manufacturer:      m.Manufacturer,
		Model:             m.Model,
		MiscIdentifier:    m.MiscIdentifier,
		Amount:            m.Amount,
		Location:          m.Location,
		LocationSpecifier: m.LocationSpecifier,
		Manager:           m.Manager,
		Category:          m.Category,
	}
	if m.ID != nil {
		req.ID = *m.ID
	}
	return req
}

func (m OperationMessage) deleteRequest() equipment.DeleteRequest {
	req := equipment.DeleteRequest{}
	if m.ID != nil {
		req.ID = *m.ID
	}
	return req
}
