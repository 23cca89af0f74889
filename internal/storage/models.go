package storage

import "time"

// DeliveryKind separates the breaking and digest channel classes.
type DeliveryKind string

const (
	KindBreaking DeliveryKind = "breaking"
	KindDigest   DeliveryKind = "digest"
)

// DeliveryRecord captures a confirmed delivery for de-duplication/auditing.
type DeliveryRecord struct {
	ArticleID   string
	Kind        DeliveryKind
	URL         string
	Title       string
	Source      string
	Category    string
	Currencies  []string
	ImpactScore int
	PublishedAt time.Time
	DeliveredAt time.Time
	Channels    []string
}

// DeliveryFilter narrows ListDeliveries. Zero values are ignored.
type DeliveryFilter struct {
	Kind  DeliveryKind
	Since time.Time
	Until time.Time
	Limit int
	// Ascending orders oldest first.
	Ascending bool
}
