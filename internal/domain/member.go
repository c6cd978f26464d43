package domain

import "time"

// Member - участник комнаты и его последняя известная позиция.
type Member struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	LastUpdated time.Time `json:"lastUpdated"`

	// владелец записи, на провод не уходит
	ConnectionID string `json:"-"`
}

// MemberPatch - частичное обновление: nil-поля не трогают существующую запись.
type MemberPatch struct {
	ID        string
	Name      *string
	Color     *string
	Icon      *string
	Latitude  *float64
	Longitude *float64
}

// Apply переносит заданные поля патча в m.
func (p MemberPatch) Apply(m *Member) {
	if p.ID != "" {
		m.ID = p.ID
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	if p.Icon != nil {
		m.Icon = *p.Icon
	}
	if p.Latitude != nil {
		m.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		m.Longitude = *p.Longitude
	}
}
