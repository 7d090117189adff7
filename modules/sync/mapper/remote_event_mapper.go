package mapper

import (
	"time"

	eventEntity "schedshare/modules/event/entity"
	"schedshare/modules/sync/dto"

	"github.com/google/uuid"
)

const allDayDateLayout = "2006-01-02"

// EventTimes is the resolved time range of a remote event: one tagged value
// instead of dateTime-or-date fallbacks scattered through the engines.
type EventTimes struct {
	Start    time.Time
	End      time.Time
	AllDay   bool
	Timezone string
}

// ResolveEventTimes parses the remote start/end pair. ok is false when the
// event is malformed (missing id or no usable start/end) and must be skipped.
func ResolveEventTimes(ev dto.RemoteEvent) (EventTimes, bool) {
	if ev.ID == "" {
		return EventTimes{}, false
	}

	switch {
	case ev.Start.DateTime != "" && ev.End.DateTime != "":
		start, err1 := time.Parse(time.RFC3339, ev.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, ev.End.DateTime)
		if err1 != nil || err2 != nil {
			return EventTimes{}, false
		}
		tz := ev.Start.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		return EventTimes{Start: start, End: end, Timezone: tz}, true

	case ev.Start.Date != "" && ev.End.Date != "":
		start, err1 := time.Parse(allDayDateLayout, ev.Start.Date)
		end, err2 := time.Parse(allDayDateLayout, ev.End.Date)
		if err1 != nil || err2 != nil {
			return EventTimes{}, false
		}
		return EventTimes{Start: start, End: end, AllDay: true, Timezone: "UTC"}, true
	}

	return EventTimes{}, false
}

// ParseUpdated parses the remote event's updated stamp, nil when absent or
// unparseable.
func ParseUpdated(ev dto.RemoteEvent) *time.Time {
	if ev.Updated == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ev.Updated)
	if err != nil {
		return nil
	}
	return &t
}

// NewLocalEvent builds the local event created when an unmapped remote event
// is imported. Imports default to private visibility and are marked
// SourceRemote so they are never pushed back.
func NewLocalEvent(ownerID uuid.UUID, ev dto.RemoteEvent, times EventTimes) *eventEntity.Event {
	local := &eventEntity.Event{
		OwnerID:    ownerID,
		Title:      ev.Summary,
		StartAt:    times.Start,
		EndAt:      times.End,
		Timezone:   times.Timezone,
		AllDay:     times.AllDay,
		Source:     eventEntity.SourceRemote,
		Visibility: eventEntity.VisibilityPrivate,
		ExternalID: &ev.ID,
	}
	if ev.Summary == "" {
		local.Title = "(untitled)"
	}
	if ev.Description != "" {
		local.Description = &ev.Description
	}
	if ev.Location != "" {
		local.LocationName = &ev.Location
	}
	return local
}

// ApplyRemote overwrites the local event's content fields from the remote
// payload. The remote side wins on conflicting pulls.
func ApplyRemote(local *eventEntity.Event, ev dto.RemoteEvent, times EventTimes) {
	local.Title = ev.Summary
	if ev.Summary == "" {
		local.Title = "(untitled)"
	}
	local.Description = nil
	if ev.Description != "" {
		local.Description = &ev.Description
	}
	local.LocationName = nil
	if ev.Location != "" {
		local.LocationName = &ev.Location
	}
	local.StartAt = times.Start
	local.EndAt = times.End
	local.Timezone = times.Timezone
	local.AllDay = times.AllDay
}

// ToEventPayload builds the remote insert/update body from a local event.
func ToEventPayload(ev *eventEntity.Event) *dto.EventPayload {
	payload := &dto.EventPayload{
		Summary: ev.Title,
	}
	if ev.Description != nil {
		payload.Description = *ev.Description
	}
	if ev.LocationName != nil {
		payload.Location = *ev.LocationName
	}

	if ev.AllDay {
		payload.Start = dto.EventTime{Date: ev.StartAt.Format(allDayDateLayout)}
		payload.End = dto.EventTime{Date: ev.EndAt.Format(allDayDateLayout)}
		return payload
	}

	tz := ev.Timezone
	if tz == "" {
		tz = "UTC"
	}
	payload.Start = dto.EventTime{DateTime: ev.StartAt.Format(time.RFC3339), TimeZone: tz}
	payload.End = dto.EventTime{DateTime: ev.EndAt.Format(time.RFC3339), TimeZone: tz}
	return payload
}
