package models

// NamingSeriesCounter issues strictly increasing counters per (series_code,
// year). Rows are only ever touched through a single atomic upsert-and-
// increment; the composite unique index is what makes concurrent issuance safe.
type NamingSeriesCounter struct {
	SeriesCode string `gorm:"primaryKey;size:32" json:"series_code"`
	Year       int    `gorm:"primaryKey" json:"year"`
	Counter    int64  `gorm:"not null;default:0" json:"counter"`
}

// TableName keeps the historical table name used by the counter upsert SQL.
func (NamingSeriesCounter) TableName() string {
	return "naming_series_counters"
}
