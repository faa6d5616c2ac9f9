// Package settlement computes the fee split applied when a completed job is
// paid out. The platform fee rate is supplied by configuration, not baked in.
package settlement

import (
	"math"

	"marketplace-engine/internal/apperr"
)

// Split is the platform/worker division of a gross amount. PlatformFee plus
// WorkerAmount always equals the gross amount exactly at cent precision.
type Split struct {
	GrossAmount  float64 `json:"gross_amount"`
	PlatformFee  float64 `json:"platform_fee"`
	WorkerAmount float64 `json:"worker_amount"`
}

// Compute splits gross at the given rate. Amounts are handled in integer
// cents with round-half-up; the worker amount is derived by subtraction so
// the two parts reconstruct the gross without a one-cent discrepancy.
func Compute(gross, rate float64) (Split, error) {
	if gross < 0 {
		return Split{}, apperr.Validation("gross amount must be >= 0")
	}
	if rate < 0 || rate > 1 {
		return Split{}, apperr.Validation("fee rate must be within [0, 1]")
	}

	grossCents := roundHalfUpCents(gross)
	feeCents := int64(math.Floor(float64(grossCents)*rate + 0.5))
	workerCents := grossCents - feeCents

	return Split{
		GrossAmount:  centsToAmount(grossCents),
		PlatformFee:  centsToAmount(feeCents),
		WorkerAmount: centsToAmount(workerCents),
	}, nil
}

func roundHalfUpCents(amount float64) int64 {
	return int64(math.Floor(amount*100 + 0.5))
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
