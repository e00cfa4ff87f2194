package zoom

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL   = "https://api.zoom.us/v2"
	oauthURL = "https://zoom.us/oauth/token"

	meetingTypeScheduled = 2
	defaultTimezone      = "Asia/Tokyo"

	// Refresh the cached token slightly before Zoom expires it.
	tokenExpirySlack = 60 * time.Second
)

// Client talks to the Zoom API using server-to-server OAuth credentials.
type Client struct {
	// ctx used only for http requests right now
	ctx          context.Context
	accountID    string
	clientID     string
	clientSecret string
	logger       *zap.Logger
	HTTPClient   *http.Client
	APIURL       string
	OAuthURL     string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

func New(ctx context.Context, logger *zap.Logger, accountID, clientID, clientSecret string) *Client {
	return &Client{
		ctx:          ctx,
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		APIURL:       apiURL,
		OAuthURL:     oauthURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

type Meeting struct {
	ID       int64  `json:"id"`
	Topic    string `json:"topic"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}

type meetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	JoinBeforeHost bool `json:"join_before_host"`
	WaitingRoom    bool `json:"waiting_room"`
}

// CreateMeeting schedules a Zoom meeting for the given slot on the
// authenticated user's account.
func (c *Client) CreateMeeting(topic, agenda string, start time.Time, durationMinutes int) (*Meeting, error) {
	payload := &meetingRequest{
		Topic:     topic,
		Type:      meetingTypeScheduled,
		StartTime: start.Format(time.RFC3339),
		Duration:  durationMinutes,
		Timezone:  defaultTimezone,
		Agenda:    agenda,
		Settings: meetingSettings{
			JoinBeforeHost: true,
			WaitingRoom:    false,
		},
	}

	var meeting Meeting
	if err := c.postJSON(c.APIURL+"/users/me/meetings", payload, &meeting); err != nil {
		return nil, err
	}

	c.logger.Debug("created zoom meeting",
		zap.Int64("meeting_id", meeting.ID),
		zap.String("join_url", meeting.JoinURL),
	)

	return &meeting, nil
}

// DeleteMeeting removes a previously scheduled meeting.
func (c *Client) DeleteMeeting(id int64) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodDelete, fmt.Sprintf("%s/meetings/%d", c.APIURL, id), nil)
	if err != nil {
		return err
	}

	token, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return nil
}

func (c *Client) postJSON(url string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	token, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached server-to-server OAuth token, fetching a fresh one
// when the cached token is missing or about to expire.
func (c *Client) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.accessToken, nil
	}

	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", c.accountID)

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.OAuthURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("zoom oauth: bad status: %s", resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("zoom oauth: empty access token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("refreshed zoom access token", zap.Time("expires_at", c.tokenExpiry))

	return c.accessToken, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
