package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://video.twilio.com"

// TwilioConfig carries the credentials and knobs for the Twilio Video
// REST adapter. API key/secret are used for both REST auth and access
// token signing.
type TwilioConfig struct {
	AccountSID string
	APIKey     string
	APISecret  string

	// BaseURL overrides the Twilio endpoint; used by tests.
	BaseURL string

	// RequestTimeout bounds every outbound call.
	RequestTimeout time.Duration
}

func (c TwilioConfig) withDefaults() TwilioConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultTwilioBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return c
}

// TwilioProvider talks to the Twilio Video REST API.
type TwilioProvider struct {
	cfg    TwilioConfig
	client *http.Client
}

func NewTwilioProvider(cfg TwilioConfig) *TwilioProvider {
	cfg = cfg.withDefaults()
	return &TwilioProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// AllocateRoom creates (or reuses) a group room named after the call.
// Twilio returns 201 for a new room; a room that already exists with
// the same unique name comes back as an error code 53113, which we
// treat as success since the handle is deterministic.
func (p *TwilioProvider) AllocateRoom(ctx context.Context, callID string) (string, error) {
	name := RoomNameFor(callID)

	form := url.Values{}
	form.Set("UniqueName", name)
	form.Set("Type", "group")

	body, status, err := p.do(ctx, http.MethodPost, "/v1/Rooms", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		return name, nil
	case status == http.StatusBadRequest && twilioErrorCode(body) == 53113:
		// Room in progress with this unique name already.
		return name, nil
	default:
		return "", fmt.Errorf("video: twilio create room %s: status %d", name, status)
	}
}

// RoomStatus fetches the room and, when it exists, its connected
// participants. A 404 maps to Exists=false; any other failure is an
// error so the caller can skip reconciliation for this cycle.
func (p *TwilioProvider) RoomStatus(ctx context.Context, roomHandle string) (RoomStatus, error) {
	body, status, err := p.do(ctx, http.MethodGet, "/v1/Rooms/"+url.PathEscape(roomHandle), nil)
	if err != nil {
		return RoomStatus{}, err
	}
	if status == http.StatusNotFound {
		return RoomStatus{Exists: false}, nil
	}
	if status != http.StatusOK {
		return RoomStatus{}, fmt.Errorf("video: twilio fetch room %s: status %d", roomHandle, status)
	}

	var room struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &room); err != nil {
		return RoomStatus{}, fmt.Errorf("video: decode room: %w", err)
	}

	out := RoomStatus{Exists: true, State: RoomState(room.Status)}
	if out.State != RoomStateInProgress {
		return out, nil
	}

	participants, err := p.connectedParticipants(ctx, room.SID)
	if err != nil {
		return RoomStatus{}, err
	}
	out.Participants = participants
	return out, nil
}

func (p *TwilioProvider) connectedParticipants(ctx context.Context, roomSID string) ([]Participant, error) {
	path := "/v1/Rooms/" + url.PathEscape(roomSID) + "/Participants?Status=connected"
	body, status, err := p.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("video: twilio list participants: status %d", status)
	}

	var page struct {
		Participants []struct {
			Identity  string    `json:"identity"`
			StartTime time.Time `json:"start_time"`
		} `json:"participants"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("video: decode participants: %w", err)
	}

	out := make([]Participant, 0, len(page.Participants))
	for _, pt := range page.Participants {
		out = append(out, Participant{Identity: pt.Identity, ConnectedAt: pt.StartTime})
	}
	return out, nil
}

func (p *TwilioProvider) do(ctx context.Context, method, path string, payload io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, payload)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(p.cfg.APIKey, p.cfg.APISecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

func twilioErrorCode(body []byte) int {
	var e struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return 0
	}
	return e.Code
}
