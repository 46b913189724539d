// Package loki provides a client to push client change events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters we avoid in Loki label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:.]`)

// eventFields is the subset of a client event needed for labels and timestamp.
type eventFields struct {
	Type       string `json:"type"`
	OccurredAt string `json:"occurred_at"`
}

// Client pushes log lines to a Loki instance. Safe for concurrent use.
type Client struct {
	baseURL    string
	service    string
	httpClient *http.Client
}

// NewClient returns a client for the Loki instance at baseURL (e.g. http://localhost:3100).
// service is attached to every stream as the "service" label. Outgoing requests are traced with otelhttp.
func NewClient(baseURL, service string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("loki: base URL is empty")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		service: service,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// PushEventJSON parses the client event JSON (Kafka message value), extracts timestamp and labels, and pushes to Loki.
// If parsing fails, the raw line is pushed with current time and no event labels.
func (c *Client) PushEventJSON(ctx context.Context, rawJSON []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var fields eventFields
	if err := json.Unmarshal(rawJSON, &fields); err == nil {
		if fields.Type != "" {
			labels["event_type"] = fields.Type
		}
		if fields.OccurredAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, fields.OccurredAt); err == nil {
				ts = t
			}
		}
	}
	return c.Push(ctx, ts, string(rawJSON), labels)
}

// Push sends a single log line to Loki. labels are added to the stream after sanitizing; empty values are dropped.
// Returns an error if the HTTP request fails or Loki returns non-2xx.
func (c *Client) Push(ctx context.Context, timestamp time.Time, line string, labels map[string]string) error {
	streamLabels := make(map[string]string, len(labels)+2)
	streamLabels["job"] = "crm-backend"
	if c.service != "" {
		streamLabels["service"] = c.service
	}
	for k, v := range labels {
		sanitized := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_")
		if sanitized != "" {
			streamLabels[k] = sanitized
		}
	}
	body := PushRequest{
		Streams: []Stream{{
			Stream: streamLabels,
			Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
