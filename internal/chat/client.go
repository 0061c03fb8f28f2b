// Package chat fetches and normalizes messages from the source chat
// platform. The transport is a Slack-compatible web API; pagination,
// rate limiting, and wire decoding live here, behind the adapter.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxPageSize = 200

// Client is a minimal chat web API client. All methods fail fast: a
// transport error aborts the whole fetch so callers never act on a
// silently truncated message set.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given API base URL and bot token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Tier-3 style web API budget: ~1 request/sec with small bursts.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// Message is the wire shape of a channel message.
type Message struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype,omitempty"`
	TS         string `json:"ts"`
	Text       string `json:"text"`
	User       string `json:"user,omitempty"`
	Username   string `json:"username,omitempty"`
	BotID      string `json:"bot_id,omitempty"`
	ThreadTS   string `json:"thread_ts,omitempty"`
	ReplyCount int    `json:"reply_count,omitempty"`
	Edited     *struct {
		TS string `json:"ts"`
	} `json:"edited,omitempty"`
	Files []File `json:"files,omitempty"`
}

// File is the wire shape of a message attachment.
type File struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Mimetype        string `json:"mimetype,omitempty"`
	Filetype        string `json:"filetype,omitempty"`
	PermalinkPublic string `json:"permalink_public,omitempty"`
	URLPrivate      string `json:"url_private,omitempty"`
	URLFormatted    string `json:"url_download,omitempty"`
	Width           int    `json:"original_w,omitempty"`
	Height          int    `json:"original_h,omitempty"`
	DurationMS      int    `json:"duration_ms,omitempty"`
}

type apiResponse struct {
	OK               bool      `json:"ok"`
	Error            string    `json:"error,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	HasMore          bool      `json:"has_more,omitempty"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata,omitempty"`
}

// History fetches all channel messages with ts in (oldest, latest],
// paginating transparently until exhausted. Timestamps are the
// platform's "seconds.sequence" tokens; empty latest means now.
func (c *Client) History(ctx context.Context, channelID, oldest, latest string) ([]Message, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	if oldest != "" {
		params.Set("oldest", oldest)
	}
	if latest != "" {
		params.Set("latest", latest)
	}
	return c.paginate(ctx, "conversations.history", params)
}

// Replies fetches a full thread: the root message followed by every
// reply, paginated until exhausted.
func (c *Client) Replies(ctx context.Context, channelID, threadTS string) ([]Message, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("ts", threadTS)
	return c.paginate(ctx, "conversations.replies", params)
}

// PostMessage posts text to a channel.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	body, err := json.Marshal(map[string]string{
		"channel": channelID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode post body: %w", err)
	}

	var resp apiResponse
	if err := c.post(ctx, "chat.postMessage", body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage failed: %s", resp.Error)
	}
	return nil
}

func (c *Client) paginate(ctx context.Context, method string, params url.Values) ([]Message, error) {
	params.Set("limit", fmt.Sprint(maxPageSize))

	var all []Message
	cursor := ""
	for {
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp apiResponse
		if err := c.get(ctx, method, params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("%s failed: %s", method, resp.Error)
		}

		all = append(all, resp.Messages...)

		cursor = resp.ResponseMetadata.NextCursor
		if !resp.HasMore || cursor == "" {
			return all, nil
		}
	}
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out *apiResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, method, out)
}

func (c *Client) post(ctx context.Context, method string, body []byte, out *apiResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+method, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out *apiResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read body: %w", method, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s decode body: %w", method, err)
	}
	return nil
}
