package db

import "time"

// DomainEntry is a blocklisted domain.
type DomainEntry struct {
	Domain   string    `json:"domain"`
	Category string    `json:"category"`
	Source   string    `json:"source"`
	AddedAt  time.Time `json:"added_at"`
}
