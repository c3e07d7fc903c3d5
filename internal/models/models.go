package models

// Catalog pairs the services a customer may pick with the bookable time slots.
type Catalog struct {
	Services  []string `json:"services" yaml:"services"`
	TimeSlots []string `json:"timeSlots" yaml:"time_slots"`
}

// DefaultCatalog returns copies of the built-in catalogs.
func DefaultCatalog() Catalog {
	return Catalog{
		Services:  append([]string(nil), Services...),
		TimeSlots: append([]string(nil), TimeSlots...),
	}
}

func (c Catalog) HasService(name string) bool {
	return contains(c.Services, name)
}

func (c Catalog) HasTimeSlot(slot string) bool {
	return contains(c.TimeSlots, slot)
}

// AvailableSlots returns the catalog slots not present in booked, in catalog order.
func (c Catalog) AvailableSlots(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	out := make([]string, 0, len(c.TimeSlots))
	for _, slot := range c.TimeSlots {
		if _, ok := taken[slot]; !ok {
			out = append(out, slot)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
