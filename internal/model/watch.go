package model

import "time"

// FlightWatch : отслеживаемое направление с пороговой ценой.
type FlightWatch struct {
	UUID           string    `db:"uuid" json:"uuid"`
	OwnerUUID      string    `db:"owner_uuid" json:"owner_uuid"`
	Origin         string    `db:"origin" json:"origin"`
	Destination    string    `db:"destination" json:"destination"`
	DepartDate     time.Time `db:"depart_date" json:"depart_date"`
	ThresholdCents int64     `db:"threshold_cents" json:"threshold_cents"`
	Currency       string    `db:"currency" json:"currency"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PriceSnapshot : зафиксированная цена по направлению на момент опроса.
// StoragePath указывает на выгруженную историю цен в S3, если она есть.
type PriceSnapshot struct {
	UUID        string    `db:"uuid" json:"uuid"`
	WatchUUID   string    `db:"watch_uuid" json:"watch_uuid"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Currency    string    `db:"currency" json:"currency"`
	Carrier     string    `db:"carrier" json:"carrier"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
	StoragePath string    `db:"storage_path" json:"-"`
}

// GetWatchResult : watch вместе с последним снимком цены и ссылкой на архив.
type GetWatchResult struct {
	Watch      *FlightWatch   `json:"watch"`
	Latest     *PriceSnapshot `json:"latest,omitempty"`
	HistoryURL string         `json:"history_url,omitempty"`
}
