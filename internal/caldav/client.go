package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//mealsync//Meal Plan Sync//EN"

// Event is a calendar event to be written to the user's CalDAV collection
type Event struct {
	UID         string
	Title       string
	Description string
	Link        string
	Start       time.Time
	End         time.Time
}

// Client talks to a single CalDAV calendar collection
type Client interface {
	// TestConnection probes the collection URL with an authenticated
	// PROPFIND and reports whether the server accepts the credentials.
	TestConnection(ctx context.Context) error

	// CreateEvent PUTs the event as a new calendar object and returns
	// the UID under which it was stored.
	CreateEvent(ctx context.Context, event Event) (string, error)

	// DeleteEvent removes the calendar object for the given UID. A UID
	// that is already gone from the server is not an error.
	DeleteEvent(ctx context.Context, uid string) error
}

type client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client for the calendar collection at baseURL,
// authenticating every request with the given credentials.
func NewClient(baseURL, username, password string, timeout time.Duration) (Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must be http or https", baseURL)
	}

	normalized := parsed.String()
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	return &client{
		httpClient: &http.Client{
			Transport: NewBasicAuthTransport(username, password, nil),
			Timeout:   timeout,
		},
		baseURL: normalized,
	}, nil
}

func (c *client) TestConnection(ctx context.Context) error {
	body := strings.NewReader(`<?xml version="1.0" encoding="utf-8"?>` +
		`<d:propfind xmlns:d="DAV:"><d:prop><d:resourcetype/></d:prop></d:propfind>`)

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", c.baseURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Depth", "0")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach CalDAV server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("CalDAV server rejected credentials (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d from CalDAV server", resp.StatusCode)
	}
}

func (c *client) CreateEvent(ctx context.Context, event Event) (string, error) {
	uid := event.UID
	if uid == "" {
		uid = uuid.New().String()
	}

	data, err := encodeEvent(uid, event)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(uid), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return uid, nil
	default:
		return "", fmt.Errorf("CalDAV PUT failed with status %d", resp.StatusCode)
	}
}

func (c *client) DeleteEvent(ctx context.Context, uid string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(uid), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		return nil
	default:
		return fmt.Errorf("CalDAV DELETE failed with status %d", resp.StatusCode)
	}
}

func (c *client) objectURL(uid string) string {
	return c.baseURL + uid + ".ics"
}

func encodeEvent(uid string, event Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	ev := ical.NewComponent(ical.CompEvent)
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetText(ical.PropSummary, event.Title)
	ev.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, event.End)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	if event.Description != "" {
		ev.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Link != "" {
		ev.Props.SetText(ical.PropURL, event.Link)
	}
	cal.Children = append(cal.Children, ev)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar event: %w", err)
	}
	return buf.Bytes(), nil
}
