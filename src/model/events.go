package model

import "github.com/google/uuid"

type OperationStatus string

const ( // stored as text in the operations table
	OperationStatusApplied  OperationStatus = "applied"
	OperationStatusRejected OperationStatus = "rejected"
)

// OperationEvent is one row of the operation history the daemon writes to
// postgres after each engine call.
type OperationEvent struct {
	Id        uuid.UUID       `json:"id"`
	Op        string          `json:"op"`
	Actor     AccountName     `json:"actor"`
	Quantity  Asset           `json:"quantity"`
	Memo      string          `json:"memo"`
	Status    OperationStatus `json:"status"`
	Detail    string          `json:"detail"`
	Timestamp uint64          `json:"timestamp"`
}
