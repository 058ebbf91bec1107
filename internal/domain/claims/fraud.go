package claims

import "fmt"

// FraudMultiplier is the anomaly threshold for the fraud heuristic: a claim
// is flagged when its amount exceeds FraudMultiplier times the procedure's
// average cost. Kept as a named constant so the threshold can be tuned in
// one place.
const FraudMultiplier = 2.0

// EvaluateFraud computes the fraud signal for a claim amount against a
// procedure's average cost. Both inputs are pre-validated positive amounts.
// The comparison is strictly greater-than: a claim at exactly the threshold
// is not flagged. Returns the flag and a human-readable reason when flagged.
func EvaluateFraud(claimAmount, averageCost float64) (bool, string) {
	threshold := averageCost * FraudMultiplier
	if claimAmount > threshold {
		reason := fmt.Sprintf(
			"Claim amount (%.2f) exceeds %.1fx average procedure cost (%.2f)",
			claimAmount, FraudMultiplier, averageCost)
		return true, reason
	}
	return false, ""
}
