package models

import "fmt"

// ResourceRef identifies a bookable resource or a customer owned by the
// host application. The engine never controls these entities; it only keys
// rates and bookings by (type, id).
type ResourceRef struct {
	Type string
	ID   int64
}

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

func (r ResourceRef) IsZero() bool {
	return r.Type == "" && r.ID == 0
}
