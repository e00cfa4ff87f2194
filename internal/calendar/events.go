package calendar

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	eventsPath           = "/calendars/%s/events"
	eventStatusCancelled = "cancelled"
)

type Event struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Summary  string    `json:"summary"`
	HTMLLink string    `json:"htmlLink"`
	Start    EventTime `json:"start"`
	End      EventTime `json:"end"`
}

// EventTime carries either a timestamp or, for all-day events, a bare date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Parse returns the point in time this EventTime denotes. All-day events
// (date only) report false: they do not block interview slots.
func (t EventTime) Parse() (time.Time, bool) {
	if t.DateTime == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.RFC3339, t.DateTime)
	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}

type EventRequest struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

type Attendee struct {
	Email string `json:"email"`
}

func (c *Client) listEvents(from, to time.Time) ([]*Event, error) {
	var events []*Event

	q := url.Values{}
	q.Set("timeMin", from.Format(time.RFC3339))
	q.Set("timeMax", to.Format(time.RFC3339))
	// Expand recurring events so every occupied interval is visible.
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", maxResultsPerPage)

	eventsURL := fmt.Sprintf("%s"+eventsPath, c.APIURL, url.PathEscape(c.CalendarID))

	items, err := c.GetItems(eventsURL, q)
	if err != nil {
		return nil, err
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &events,
		TagName:  "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(items); err != nil {
		return nil, err
	}

	return events, nil
}

func (c *Client) createEvent(event *EventRequest) (*Event, error) {
	eventsURL := fmt.Sprintf("%s"+eventsPath, c.APIURL, url.PathEscape(c.CalendarID))

	var created Event
	if err := c.postJSON(eventsURL, event, &created); err != nil {
		return nil, err
	}

	return &created, nil
}
