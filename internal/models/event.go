package models

import "time"

// Severity is the severity tag of an event (INFO | WARNING | ERROR | CRITICAL).
type Severity struct {
	Name        string `json:"name" binding:"required,tagvalue"`
	Description string `json:"description"`
}

// EventType is the category tag of an event.
type EventType struct {
	Name        string `json:"name" binding:"required,tagvalue"`
	Description string `json:"description"`
}

// Location describes where a Source resides.
type Location struct {
	Name    string `json:"name"`
	Country string `json:"country" binding:"required,tagvalue"`
	City    string `json:"city" binding:"required,tagvalue"`
}

// Source is the host that emitted an event.
type Source struct {
	Name      string   `json:"name" binding:"required,tagvalue"`
	IPAddress string   `json:"ip_address" binding:"required,tagvalue"`
	Location  Location `json:"location" binding:"required"`
}

// Event is a single timestamped record. It has no id of its own: the tuple
// (timestamp, severity, event_type, source_name) addresses it in the store.
type Event struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Message   string    `json:"message"` // may be empty
	Severity  Severity  `json:"severity" binding:"required"`
	EventType EventType `json:"event_type" binding:"required"`
	Source    Source    `json:"source" binding:"required"`
}

// StoredEvent is the flat shape of an event read back from the store.
type StoredEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	Message         string    `json:"message"`
	Severity        string    `json:"severity"`
	EventType       string    `json:"event_type"`
	SourceName      string    `json:"source_name"`
	SourceIP        string    `json:"source_ip"`
	LocationCountry string    `json:"location_country"`
	LocationCity    string    `json:"location_city"`
}

// SeverityUpdate identifies one event and the severity it should be moved to.
type SeverityUpdate struct {
	Timestamp   time.Time `json:"timestamp" binding:"required"`
	OldSeverity string    `json:"old_severity" binding:"required,tagvalue"`
	NewSeverity string    `json:"new_severity" binding:"required,tagvalue"`
	EventType   string    `json:"event_type" binding:"required,tagvalue"`
	SourceName  string    `json:"source_name" binding:"required,tagvalue"`
}

// Store tag keys.
const (
	TagSeverity        = "severity"
	TagEventType       = "event_type"
	TagSourceName      = "source_name"
	TagSourceIP        = "source_ip"
	TagLocationCountry = "location_country"
	TagLocationCity    = "location_city"
)

// EventFilter narrows a range query by exact tag matches. Empty fields are ignored.
type EventFilter struct {
	Severity        string
	EventType       string
	SourceName      string
	LocationCountry string
	LocationCity    string
}

// Tags returns the non-empty filter values keyed by store tag name.
func (f EventFilter) Tags() map[string]string {
	out := make(map[string]string, 5)
	for k, v := range map[string]string{
		TagSeverity:        f.Severity,
		TagEventType:       f.EventType,
		TagSourceName:      f.SourceName,
		TagLocationCountry: f.LocationCountry,
		TagLocationCity:    f.LocationCity,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Matches reports whether e satisfies every non-empty filter value.
func (f EventFilter) Matches(e StoredEvent) bool {
	return (f.Severity == "" || f.Severity == e.Severity) &&
		(f.EventType == "" || f.EventType == e.EventType) &&
		(f.SourceName == "" || f.SourceName == e.SourceName) &&
		(f.LocationCountry == "" || f.LocationCountry == e.LocationCountry) &&
		(f.LocationCity == "" || f.LocationCity == e.LocationCity)
}

// Flatten converts an Event into its stored shape.
func (e Event) Flatten() StoredEvent {
	return StoredEvent{
		Timestamp:       e.Timestamp.UTC(),
		Message:         e.Message,
		Severity:        e.Severity.Name,
		EventType:       e.EventType.Name,
		SourceName:      e.Source.Name,
		SourceIP:        e.Source.IPAddress,
		LocationCountry: e.Source.Location.Country,
		LocationCity:    e.Source.Location.City,
	}
}
