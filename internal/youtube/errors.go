package youtube

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"ytanalyzer/internal/retry"
	"ytanalyzer/internal/services"
)

// API error reasons the scraper reacts to.
const (
	ReasonCommentsDisabled   = "commentsDisabled"
	ReasonQuotaExceeded      = "quotaExceeded"
	ReasonDailyLimitExceeded = "dailyLimitExceeded"
	ReasonVideoNotFound      = "videoNotFound"
)

// errorReason returns the first reason the API attached to err.
func errorReason(err *googleapi.Error) string {
	for _, item := range err.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}

// classify translates transport failures into the services taxonomy.
func classify(videoID string, err error) error {
	var statusErr *retry.StatusError
	if !errors.As(err, &statusErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrUpstreamAPI, "youtube", "comment threads", "video "+videoID, err)
	}
	switch {
	case statusErr.Reason == ReasonCommentsDisabled:
		return services.Wrap(services.ErrCommentsDisabled, "youtube", "comment threads", "comments disabled on "+videoID, err)
	case statusErr.Reason == ReasonQuotaExceeded || statusErr.Reason == ReasonDailyLimitExceeded:
		return services.Wrap(services.ErrQuotaExceeded, "youtube", "comment threads", "daily quota exhausted", err)
	case statusErr.StatusCode == http.StatusNotFound || statusErr.Reason == ReasonVideoNotFound:
		return services.Wrap(services.ErrNotFound, "youtube", "comment threads", "video "+videoID, err)
	default:
		return services.Wrap(services.ErrUpstreamAPI, "youtube", "comment threads", "video "+videoID, err)
	}
}
