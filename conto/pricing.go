// Package conto derives checkout pricing: tax, delivery fee by distance,
// totals and ready-time estimates. Amounts stay unrounded until the
// quote/submission boundary.
package conto

import (
	"errors"
	"math"
)

// TaxRate is the fixed regional sales tax applied to the subtotal.
const TaxRate = 0.085

const (
	// BaseDeliveryFee applies to any address within FreeRadiusMiles.
	BaseDeliveryFee = 4.00
	// PerMileSurcharge is added for every mile past FreeRadiusMiles.
	PerMileSurcharge = 2.00
	FreeRadiusMiles  = 5.0
	MaxDeliveryMiles = 9.0
)

// ErrOutsideDeliveryArea blocks delivery orders beyond MaxDeliveryMiles.
var ErrOutsideDeliveryArea = errors.New("address outside delivery area")

// Quote is a full pricing derivation for one cart at one point in time.
// Fields are unrounded; Rounded produces the presentation form.
type Quote struct {
	Subtotal      float64 `json:"subtotal"`
	DeliveryFee   float64 `json:"delivery_fee"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
	DistanceMiles float64 `json:"distance_miles,omitempty"`
	EstimateMin   int     `json:"estimate_min"`
	EstimateMax   int     `json:"estimate_max"`
}

func Tax(subtotal float64) float64 {
	return subtotal * TaxRate
}

// DeliveryFee maps the estimated distance to a fee. Past the maximum
// radius it returns ErrOutsideDeliveryArea and the order must not be
// submitted.
func DeliveryFee(miles float64) (float64, error) {
	switch {
	case miles <= FreeRadiusMiles:
		return BaseDeliveryFee, nil
	case miles <= MaxDeliveryMiles:
		return BaseDeliveryFee + PerMileSurcharge*(miles-FreeRadiusMiles), nil
	default:
		return 0, ErrOutsideDeliveryArea
	}
}

// ForDelivery derives the full quote for a delivery order.
func ForDelivery(subtotal, miles float64) (Quote, error) {
	fee, err := DeliveryFee(miles)
	if err != nil {
		return Quote{}, err
	}
	tax := Tax(subtotal)
	min, max := ReadyEstimate(true, miles)
	return Quote{
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Tax:           tax,
		Total:         subtotal + fee + tax,
		DistanceMiles: miles,
		EstimateMin:   min,
		EstimateMax:   max,
	}, nil
}

// ForPickup derives pricing for a pickup order. No delivery fee applies.
func ForPickup(subtotal float64) Quote {
	tax := Tax(subtotal)
	min, max := ReadyEstimate(false, 0)
	return Quote{
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal + tax,
		EstimateMin: min,
		EstimateMax: max,
	}
}

// ReadyEstimate returns the estimated-minutes band shown to the
// customer. Pickup is fixed; delivery widens past the free radius.
func ReadyEstimate(delivery bool, miles float64) (min, max int) {
	if !delivery {
		return 20, 25
	}
	if miles <= FreeRadiusMiles {
		return 25, 35
	}
	return 35, 45
}

// Rounded formats every amount to two decimals. Only call this at the
// display or submission boundary.
func (q Quote) Rounded() Quote {
	q.Subtotal = Round2(q.Subtotal)
	q.DeliveryFee = Round2(q.DeliveryFee)
	q.Tax = Round2(q.Tax)
	q.Total = Round2(q.Total)
	return q
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
