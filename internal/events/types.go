// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Curve notifications
	AssetCreated   EventType = "asset.created"
	TradeExecuted  EventType = "trade.executed"
	CurveCompleted EventType = "curve.completed"

	// Runner operation events
	OperationStarted   EventType = "operation.started"
	OperationCompleted EventType = "operation.completed"
	OperationFailed    EventType = "operation.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	ID        string
	EventType EventType
	EventTime time.Time
}

// NewBase stamps a new event of type t.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{ID: uuid.NewString(), EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// AssetCreatedEvent is emitted once a new curve exists.
type AssetCreatedEvent struct {
	BaseEvent
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Name    string
	Symbol  string
	URI     string
}

// TradeEvent is emitted after a trade has been committed. NativeAmount is
// the gross amount paid on a buy and the net amount received on a sell.
type TradeEvent struct {
	BaseEvent
	Mint         solana.PublicKey
	Trader       solana.PublicKey
	Side         string
	NativeAmount uint64
	TokenAmount  uint64

	PlatformFee   uint64
	ReserveFee    uint64
	ReserveTokens uint64

	VirtualNativeReserves uint64
	VirtualTokenReserves  uint64
	RealNativeReserves    uint64
	RealTokenReserves     uint64
}

// CurveCompleteEvent is emitted when a curve graduates.
type CurveCompleteEvent struct {
	BaseEvent
	Mint           solana.PublicKey
	CurveAuthority solana.PublicKey
}

// OperationStartedEvent is emitted when a scripted operation begins.
type OperationStartedEvent struct {
	BaseEvent
	TaskID     int
	TaskName   string
	Operation  string
	WalletName string
	TokenMint  string
}

// OperationCompletedEvent is emitted when a scripted operation completes successfully.
type OperationCompletedEvent struct {
	BaseEvent
	TaskID     int
	TaskName   string
	Operation  string
	WalletName string
	TokenMint  string
	Result     interface{}
}

// OperationFailedEvent is emitted when a scripted operation fails.
type OperationFailedEvent struct {
	BaseEvent
	TaskID     int
	TaskName   string
	Operation  string
	WalletName string
	TokenMint  string
	Error      error
}
