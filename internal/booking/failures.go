package booking

import "fmt"

// FailureKind tags the reason a candidate item was rejected.
type FailureKind string

const (
	FailureInsufficientQuantity FailureKind = "insufficient_quantity"
	FailureItemUnavailable      FailureKind = "item_unavailable"
	FailureTimeConflict         FailureKind = "time_conflict"
	FailureInvalid              FailureKind = "invalid"
)

// ValidationFailure is a rejection carried as data, not as a panic or a bare
// error, so batch paths (the merge) can record one item's failure and keep
// going. It still satisfies error for callers that want to wrap it.
type ValidationFailure struct {
	Kind      FailureKind `json:"kind"`
	Available int         `json:"available,omitempty"` // remaining stock, insufficient_quantity only
	Detail    string      `json:"detail,omitempty"`
}

func InsufficientQuantity(available int) *ValidationFailure {
	return &ValidationFailure{Kind: FailureInsufficientQuantity, Available: available}
}

func ItemUnavailable() *ValidationFailure {
	return &ValidationFailure{Kind: FailureItemUnavailable}
}

func TimeConflict() *ValidationFailure {
	return &ValidationFailure{Kind: FailureTimeConflict}
}

func Invalid(detail string) *ValidationFailure {
	return &ValidationFailure{Kind: FailureInvalid, Detail: detail}
}

func (f *ValidationFailure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return string(f.Kind)
}

// Message renders the user-facing text for the failure. Every kind gets its
// own message; quantity failures show the remaining count.
func (f *ValidationFailure) Message() string {
	switch f.Kind {
	case FailureInsufficientQuantity:
		if f.Available == 1 {
			return "Only 1 spot is still available for this item."
		}
		return fmt.Sprintf("Only %d spots are still available for this item.", f.Available)
	case FailureItemUnavailable:
		return "This item is no longer available for booking."
	case FailureTimeConflict:
		return "This time overlaps another booking already in your cart."
	default:
		if f.Detail != "" {
			return "That selection is not valid: " + f.Detail
		}
		return "That selection is not valid."
	}
}

// MergeOutcome is one guest item's fate during a merge: Failure is nil when
// the item made it into the authenticated cart.
type MergeOutcome struct {
	ItemID  int64              `json:"item_id"`
	Failure *ValidationFailure `json:"failure,omitempty"`
}

// MergeReport lists outcomes in the guest cart's stored order.
type MergeReport struct {
	Outcomes []MergeOutcome `json:"outcomes"`
}

func (r MergeReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failure == nil {
			n++
		}
	}
	return n
}

func (r MergeReport) Failed() int { return len(r.Outcomes) - r.Succeeded() }
