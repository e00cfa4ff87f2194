package calendar

import (
	"context"
	"net/http"
	"time"

	"github.com/spigell/sontaku-scheduler/internal/scheduler"
	"go.uber.org/zap"
)

const (
	apiURL = "https://www.googleapis.com/calendar/v3"
	// Primary calendar of the authenticated account.
	defaultCalendarID = "primary"
	// Max value for events per page.
	maxResultsPerPage = "250"
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	CalendarID string
}

func New(ctx context.Context, logger *zap.Logger, token string) *Client {
	return &Client{
		ctx:    ctx,
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		CalendarID: defaultCalendarID,
	}
}

// BusyIntervals returns the occupied intervals of the calendar between from
// and to, ready to feed into the scheduling engine. All-day events and events
// without parseable timestamps are skipped.
func (c *Client) BusyIntervals(from, to time.Time) ([]scheduler.Interval, error) {
	events, err := c.listEvents(from, to)
	if err != nil {
		return nil, err
	}

	intervals := make([]scheduler.Interval, 0, len(events))
	for _, e := range events {
		if e.Status == eventStatusCancelled {
			continue
		}

		start, ok := e.Start.Parse()
		if !ok {
			continue
		}
		end, ok := e.End.Parse()
		if !ok {
			continue
		}

		intervals = append(intervals, scheduler.Interval{Start: start, End: end})
	}

	c.logger.Debug("collected busy intervals",
		zap.Int("events", len(events)),
		zap.Int("intervals", len(intervals)),
	)

	return intervals, nil
}

func (c *Client) CreateEvent(event *EventRequest) (*Event, error) {
	return c.createEvent(event)
}
