package service

import (
	"time"
)

// Clock returns the current time. Services take one so expiry can be
// tested deterministically.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Notifier delivers a JSON payload to the given users' live connections.
type Notifier interface {
	SendToUsers(userIDs []string, message []byte)
}

type nopNotifier struct{}

func (nopNotifier) SendToUsers([]string, []byte) {}

// Page is one page of a listing together with the total row count.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func normalizePage(page, perPage int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, (page - 1) * perPage
}
