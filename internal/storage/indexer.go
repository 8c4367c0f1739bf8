// internal/storage/indexer.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

// Subscriber is the part of the event bus the indexer needs.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Indexer persists curve notifications into Storage.
type Indexer struct {
	store  Storage
	logger *zap.Logger
	subs   []events.Subscription
}

func NewIndexer(store Storage, logger *zap.Logger) *Indexer {
	return &Indexer{store: store, logger: logger.Named("indexer")}
}

// Attach subscribes the indexer to every curve notification.
func (ix *Indexer) Attach(bus Subscriber) {
	ix.subs = append(ix.subs,
		bus.Subscribe(events.AssetCreated, ix),
		bus.Subscribe(events.TradeExecuted, ix),
		bus.Subscribe(events.CurveCompleted, ix),
	)
}

// Detach removes the subscriptions made by Attach.
func (ix *Indexer) Detach() {
	for _, s := range ix.subs {
		s.Unsubscribe()
	}
	ix.subs = nil
}

func (ix *Indexer) Handle(ctx context.Context, event events.Event) error {
	var err error
	switch e := event.(type) {
	case events.AssetCreatedEvent:
		err = ix.store.SaveAsset(ctx, &models.Asset{
			Mint:    e.Mint.String(),
			Creator: e.Creator.String(),
			Name:    e.Name,
			Symbol:  e.Symbol,
			URI:     e.URI,
		})
	case events.TradeEvent:
		err = ix.store.SaveTrade(ctx, TradeFromEvent(e))
	case events.CurveCompleteEvent:
		err = ix.store.MarkGraduated(ctx, e.Mint.String(), e.CurveAuthority.String(), e.EventTime)
	default:
		return nil
	}
	if err != nil {
		ix.logger.Error("Failed to index event", zap.String("type", string(event.Type())), zap.Error(err))
		return fmt.Errorf("failed to index %s: %w", event.Type(), err)
	}
	return nil
}

// TradeFromEvent converts a trade notification into its stored row.
func TradeFromEvent(e events.TradeEvent) *models.Trade {
	return &models.Trade{
		EventID:       e.ID,
		Mint:          e.Mint.String(),
		Trader:        e.Trader.String(),
		Side:          e.Side,
		NativeAmount:  e.NativeAmount,
		TokenAmount:   e.TokenAmount,
		PlatformFee:   e.PlatformFee,
		ReserveFee:    e.ReserveFee,
		ReserveTokens: e.ReserveTokens,
		VirtualNative: e.VirtualNativeReserves,
		VirtualToken:  e.VirtualTokenReserves,
		RealNative:    e.RealNativeReserves,
		RealToken:     e.RealTokenReserves,
		ExecutedAt:    e.EventTime,
	}
}
