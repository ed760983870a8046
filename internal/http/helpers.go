package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// pathLedger reads the {ledger} path segment.
func pathLedger(r *http.Request) (core.Ledger, error) {
	return core.ParseLedger(r.PathValue("ledger"))
}

// pathIndex reads the zero-based {index} row position.
func pathIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: index %q", core.ErrInvalidRow, r.PathValue("index"))
	}
	return i, nil
}

// pathWeek reads the one-based {week} number and returns the week index.
func pathWeek(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("week"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: week %q", core.ErrWeekNotFound, r.PathValue("week"))
	}
	return n - 1, nil
}
