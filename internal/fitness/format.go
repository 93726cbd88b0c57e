package fitness

import "strconv"

// FormatScore renders a score with one decimal.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// FormatPercentage renders a rate such as 90 as "90.00%".
func FormatPercentage(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 2, 64) + "%"
}
