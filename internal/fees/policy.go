package fees

import "math"

// Policy computes the platform booking fee from a listing's monthly rent.
// The constants are frozen from config at boot; a Booking stores the computed
// fee at creation time and never re-invokes the policy afterwards.
type Policy struct {
	// Percent is the fee as a fraction of rent (0.02 = 2%)
	Percent float64
	// MinimumFee is the floor in rupees. 2% of very low rents rounds to
	// near-zero, which the gateways reject.
	MinimumFee int64
}

// NewPolicy creates a fee policy. Non-positive inputs fall back to the
// historical defaults (2%, ₹10 floor).
func NewPolicy(percent float64, minimumFee int64) Policy {
	if percent <= 0 {
		percent = 0.02
	}
	if minimumFee <= 0 {
		minimumFee = 10
	}
	return Policy{Percent: percent, MinimumFee: minimumFee}
}

// Compute returns the booking fee in rupees for the given monthly rent.
// Deterministic, no side effects.
func (p Policy) Compute(rentAmount int64) int64 {
	fee := int64(math.Floor(float64(rentAmount) * p.Percent))
	if fee < p.MinimumFee {
		return p.MinimumFee
	}
	return fee
}
