package ailink

import (
	"context"
	"errors"

	"github.com/asklens/asklens/internal/ailink/driver"
)

// ErrorCode classifies a provider failure into a stable code suitable for
// metrics labels and structured logs.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "AILINK_PROVIDER_TIMEOUT"
	}
	if errors.Is(err, context.Canceled) {
		return "AILINK_REQUEST_CANCELED"
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		switch {
		case status == 401 || status == 403:
			return "AILINK_PROVIDER_AUTH"
		case status == 429:
			return "AILINK_PROVIDER_RATE_LIMIT"
		case status >= 500 && status <= 599:
			return "AILINK_PROVIDER_UNAVAILABLE"
		case status >= 400 && status <= 499:
			return "AILINK_PROVIDER_BAD_REQUEST"
		default:
			return "AILINK_PROVIDER_ERROR"
		}
	}

	return "AILINK_PROVIDER_ERROR"
}
