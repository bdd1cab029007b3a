package model

// All amounts are carried internally as int64 minor units (e.g. cents) to
// avoid float errors; major-unit floats appear only at the API boundary.

// ToMinorUnits converts a major-unit amount (e.g. dollars) to minor units,
// rounding half-up so 25.005 -> 2501 and -25.005 -> -2501.
func ToMinorUnits(major float64) int64 {
	if major >= 0 {
		return int64(major*100 + 0.5)
	}
	return -int64(-major*100 + 0.5)
}

// ToMajorUnits converts minor units back to a major-unit float.
func ToMajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// SplitFee divides an amount into (platformFee, mentorEarnings) using a fee
// rate in basis points. The split is exact: fee is rounded half-up and
// earnings take the remainder, so fee+earnings == amount always holds, for
// negative adjustment amounts too.
func SplitFee(amountMinor int64, feeBasisPoints int) (platformFee, mentorEarnings int64) {
	bps := int64(feeBasisPoints)
	if amountMinor >= 0 {
		platformFee = (amountMinor*bps + 5000) / 10000
	} else {
		platformFee = -((-amountMinor*bps + 5000) / 10000)
	}
	mentorEarnings = amountMinor - platformFee
	return platformFee, mentorEarnings
}

// HourlyAmount computes the exact fractional-hour charge for a duration in
// minutes at an hourly rate, rounded half-up to the minor unit.
func HourlyAmount(rateMinorPerHour int64, minutes int) int64 {
	return (rateMinorPerHour*int64(minutes) + 30) / 60
}
