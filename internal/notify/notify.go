package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL      = "https://api.resend.com"
	defaultFrom = "Sontakun <noreply@sontakun.app>"
)

// Client sends transactional email through the Resend API.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	From       string
}

func New(ctx context.Context, logger *zap.Logger, apiKey string) *Client {
	return &Client{
		ctx:    ctx,
		apiKey: apiKey,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		From:   defaultFrom,
	}
}

// Confirmation carries everything the candidate needs after a slot is booked.
type Confirmation struct {
	To            string
	CandidateName string
	Start         time.Time
	End           time.Time
	JoinURL       string
	CalendarLink  string
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// SendConfirmed emails the candidate the finalized interview details.
func (c *Client) SendConfirmed(conf *Confirmation) error {
	subject := fmt.Sprintf("【確定】面接日程のご案内（%s）", conf.Start.Format("1月2日 15:04"))

	html, err := buildConfirmedBody(conf)
	if err != nil {
		return err
	}

	payload := &emailRequest{
		From:    c.From,
		To:      []string{conf.To},
		Subject: subject,
		HTML:    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.APIURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
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

	var sent emailResponse
	if err := json.Unmarshal(data, &sent); err != nil {
		return err
	}

	c.logger.Debug("sent confirmation email",
		zap.String("email_id", sent.ID),
		zap.String("to", conf.To),
	)

	return nil
}

var confirmedTemplate = template.Must(template.New("confirmed").Parse(`<p>{{.CandidateName}} 様</p>
<p>面接の日程が確定いたしましたのでご案内申し上げます。</p>
<p><strong>日時:</strong> {{.When}}</p>
{{if .JoinURL}}<p><strong>Zoom:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>
{{end}}{{if .CalendarLink}}<p><a href="{{.CalendarLink}}">カレンダーで確認する</a></p>
{{end}}<p>当日はどうぞよろしくお願いいたします。</p>`))

func buildConfirmedBody(conf *Confirmation) (string, error) {
	data := struct {
		CandidateName string
		When          string
		JoinURL       string
		CalendarLink  string
	}{
		CandidateName: conf.CandidateName,
		When: fmt.Sprintf("%s 〜 %s",
			conf.Start.Format("2006年1月2日 15:04"),
			conf.End.Format("15:04"),
		),
		JoinURL:      conf.JoinURL,
		CalendarLink: conf.CalendarLink,
	}

	var b bytes.Buffer
	if err := confirmedTemplate.Execute(&b, data); err != nil {
		return "", err
	}

	return b.String(), nil
}
