package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/retry"
	"ytanalyzer/internal/services"
)

const (
	defaultBaseURL        = "https://www.googleapis.com/youtube/v3"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryAttempts  = 4
	maxPageSize           = 100
)

// Config captures the settings required to talk to the Data API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
}

// ConfigFrom extracts client settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		APIKey:         cfg.YouTube.APIKey,
		BaseURL:        cfg.YouTube.BaseURL,
		TimeoutSeconds: cfg.YouTube.RequestTimeout,
		MaxRetries:     cfg.YouTube.MaxRetries,
	}
}

// Client wraps the commentThreads endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retry.Policy

	service    *ytapi.Service
	serviceErr error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.BaseDelay = baseDelay
		c.retry.MaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.Sleeper = sleeper
	}
}

// NewClient constructs a client. MaxRetries counts retries after the first
// attempt.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := defaultRetryAttempts
	if cfg.MaxRetries > 0 {
		attempts = cfg.MaxRetries + 1
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxRetries:     cfg.MaxRetries,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry: retry.Policy{
			Attempts:  attempts,
			BaseDelay: defaultRetryBaseDelay,
			MaxDelay:  defaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	client.service, client.serviceErr = client.newService()
	return client
}

// newService builds the generated API client on top of httpClient. The key
// travels as a query parameter; BaseURL may name the API root or its
// /youtube/v3 path.
func (c *Client) newService() (*ytapi.Service, error) {
	httpClient := *c.httpClient
	httpClient.Transport = &transport.APIKey{Key: c.cfg.APIKey, Transport: c.httpClient.Transport}
	root := strings.TrimSuffix(c.cfg.BaseURL, "/youtube/v3") + "/"
	svc, err := ytapi.NewService(context.Background(),
		option.WithHTTPClient(&httpClient),
		option.WithEndpoint(root),
	)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// Comment is one top-level comment or inline reply.
type Comment struct {
	CommentID   string
	Text        string
	AuthorName  string
	LikeCount   int64
	PublishedAt string
	IsReply     bool
	ParentID    string
}

// Page is one commentThreads response page. Every page costs one quota unit.
type Page struct {
	Comments      []Comment
	NextPageToken string
	QuotaCost     int
}

func toComment(r *ytapi.Comment, reply bool, parentID string) Comment {
	c := Comment{CommentID: r.Id, IsReply: reply}
	if r.Snippet != nil {
		c.Text = r.Snippet.TextOriginal
		if c.Text == "" {
			c.Text = r.Snippet.TextDisplay
		}
		c.AuthorName = r.Snippet.AuthorDisplayName
		c.LikeCount = r.Snippet.LikeCount
		c.PublishedAt = r.Snippet.PublishedAt
		if reply && r.Snippet.ParentId != "" {
			parentID = r.Snippet.ParentId
		}
	}
	if reply {
		c.ParentID = parentID
	}
	return c
}

// CommentThreads fetches one page of relevance-ordered threads for a video.
// Inline replies are flattened after their parent.
func (c *Client) CommentThreads(ctx context.Context, videoID, pageToken string, maxResults int) (Page, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return Page{}, services.Wrap(services.ErrValidation, "youtube", "comment threads", "video id required", nil)
	}
	if c.cfg.APIKey == "" {
		return Page{}, services.Wrap(services.ErrConfiguration, "youtube", "comment threads", "api key required", nil)
	}
	if maxResults <= 0 || maxResults > maxPageSize {
		maxResults = maxPageSize
	}
	if c.serviceErr != nil {
		return Page{}, services.Wrap(services.ErrConfiguration, "youtube", "comment threads", "client setup failed", c.serviceErr)
	}

	var resp *ytapi.CommentThreadListResponse
	err := c.retry.Do(ctx, "youtube commentThreads", func(ctx context.Context) error {
		call := c.service.CommentThreads.List([]string{"snippet,replies"}).
			VideoId(videoID).
			MaxResults(int64(maxResults)).
			Order("relevance").
			TextFormat("plainText").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		out, err := call.Do()
		if err != nil {
			return statusError("youtube commentThreads", err)
		}
		resp = out
		return nil
	})
	if err != nil {
		return Page{}, classify(videoID, err)
	}

	page := Page{NextPageToken: resp.NextPageToken, QuotaCost: 1}
	for _, item := range resp.Items {
		if item == nil || item.Snippet == nil || item.Snippet.TopLevelComment == nil {
			continue
		}
		top := item.Snippet.TopLevelComment
		if top.Id == "" {
			top.Id = item.Id
		}
		page.Comments = append(page.Comments, toComment(top, false, ""))
		if item.Replies == nil {
			continue
		}
		for _, reply := range item.Replies.Comments {
			if reply != nil {
				page.Comments = append(page.Comments, toComment(reply, true, top.Id))
			}
		}
	}
	return page, nil
}

// statusError converts an API error into a retry.StatusError so the shared
// policy can judge it; the googleapi.Error stays reachable via errors.As.
func statusError(op string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var retryAfter time.Duration
	if apiErr.Header != nil {
		retryAfter, _ = retry.ParseRetryAfter(apiErr.Header.Get("Retry-After"))
	}
	return &retry.StatusError{
		Op:         op,
		StatusCode: apiErr.Code,
		Body:       strings.TrimSpace(apiErr.Body),
		Reason:     errorReason(apiErr),
		RetryAfter: retryAfter,
		Err:        apiErr,
	}
}
