package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	crore    = 10_000_000
	lakh     = 100_000
	thousand = 1_000
)

// FormatIndianCurrency renders rupees in crore, lakh or thousand units with
// one decimal, e.g. "₹2.5 Cr".
func FormatIndianCurrency(amount float64) string {
	switch {
	case amount == 0 || math.IsNaN(amount):
		return "₹0"
	case amount >= crore:
		return fmt.Sprintf("₹%.1f Cr", amount/crore)
	case amount >= lakh:
		return fmt.Sprintf("₹%.1f L", amount/lakh)
	case amount >= thousand:
		return fmt.Sprintf("₹%.1f K", amount/thousand)
	}
	return fmt.Sprintf("₹%.0f", amount)
}

// Seconds reports d in seconds rounded to milliseconds.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// ParsePagination reads skip and limit query values. Missing or malformed
// values fall back to 0 and defaultLimit; limit is capped at maxLimit.
func ParsePagination(skip, limit string, defaultLimit, maxLimit int) (int, int) {
	s, err := strconv.Atoi(skip)
	if err != nil || s < 0 {
		s = 0
	}
	l, err := strconv.Atoi(limit)
	if err != nil || l <= 0 {
		l = defaultLimit
	}
	if l > maxLimit {
		l = maxLimit
	}
	return s, l
}
