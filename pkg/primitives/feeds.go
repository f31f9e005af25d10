package primitives

import (
	"context"
	"encoding/json"

	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// EventFeed is an append-only, day-bucketed stream of readings backing the
// Tracking and Telemetry kinds.
type EventFeed struct {
	base
	container *vault.ExternalListDailyContainer
}

// Add appends one reading to today's bucket.
func (f *EventFeed) Add(ctx context.Context, author *wallet.Wallet, reading any) error {
	return f.container.Append(ctx, author, reading)
}

// All returns every reading across all days, oldest day first.
func (f *EventFeed) All(ctx context.Context, w *wallet.Wallet) ([]json.RawMessage, error) {
	return f.container.DecryptContents(ctx, w)
}

// Day returns the readings recorded on one YYYYMMDD day.
func (f *EventFeed) Day(ctx context.Context, w *wallet.Wallet, day string) ([]json.RawMessage, error) {
	return f.container.GetDay(ctx, w, day)
}

// Tracking holds GPS pings for a shipment.
type Tracking struct {
	*EventFeed
}

// Telemetry holds sensor readings for a shipment.
type Telemetry struct {
	*EventFeed
}
