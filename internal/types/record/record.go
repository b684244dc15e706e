package record

import "time"

// Meta is the part of every record the store owns.
type Meta struct {
	ID        string    `json:"id,omitempty"`
	APIID     string    `json:"apiId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Keys lists the JSON keys of Meta. They never travel in a document body.
var Keys = []string{"id", "apiId", "createdAt", "updatedAt"}

func (m *Meta) ExternalID() string {
	return m.APIID
}
