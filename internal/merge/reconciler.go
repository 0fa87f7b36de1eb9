package merge

import (
	"context"
	"fmt"

	"tourcart/internal/booking"
	"tourcart/internal/cartstore"
	"tourcart/internal/notifications"

	"go.uber.org/zap"
)

// Reconciler drains a guest cart into the authenticated cart at login. It is
// the single authorized transition between the two tiers; no other code path
// may write to both stores.
type Reconciler struct {
	guest  cartstore.Store
	authed cartstore.Store
	sink   notifications.Sink
	logger *zap.SugaredLogger
}

func NewReconciler(guest, authed cartstore.Store, sink notifications.Sink, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{guest: guest, authed: authed, sink: sink, logger: logger}
}

// Merge moves every guest item into the authenticated cart, strictly one at
// a time and in stored order, so an earlier item wins a contested time slot
// deterministically. Each item re-validates against the authenticated cart's
// live state: by the time item N runs, items 1..N-1 may already be in there.
//
// A rejected item is recorded and skipped, never aborts the pass. Once every
// item has been visited the guest cart is cleared regardless of how many
// failed; a failed item must not stay queued for a second implicit merge.
//
// Only a hard write failure (the cart service rejecting the mutation call
// itself) stops the pass early, and then the guest cart is left intact so
// the merge can be retried.
func (r *Reconciler) Merge(ctx context.Context, guestSess, authedSess booking.Session) (booking.MergeReport, error) {
	var report booking.MergeReport

	guestCart, err := r.guest.CurrentCart(ctx, guestSess)
	if err != nil {
		return report, fmt.Errorf("read guest cart: %w", err)
	}
	if guestCart.Empty() {
		return report, nil
	}

	r.logger.Infow("merging guest cart",
		"guest", guestSess.OwnerKey, "owner", authedSess.OwnerKey, "items", len(guestCart.Items))

	for _, item := range guestCart.Items {
		failure, err := r.authed.AddItem(ctx, authedSess, item)
		if err != nil {
			return report, fmt.Errorf("merge item %d: %w", item.ItemID, err)
		}
		report.Outcomes = append(report.Outcomes, booking.MergeOutcome{ItemID: item.ItemID, Failure: failure})
		if failure != nil {
			r.logger.Infow("guest item dropped during merge",
				"owner", authedSess.OwnerKey, "item", item.ItemID, "reason", failure.Kind)
			r.sink.Notify(ctx, authedSess.OwnerKey, "Item not carried over", failure.Message())
		}
	}

	if err := r.guest.Clear(ctx, guestSess); err != nil {
		return report, fmt.Errorf("clear guest cart after merge: %w", err)
	}

	r.logger.Infow("guest cart merged",
		"owner", authedSess.OwnerKey, "succeeded", report.Succeeded(), "failed", report.Failed())
	return report, nil
}
