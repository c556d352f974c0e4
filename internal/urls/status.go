// Package urls tracks what is known about crawled and discovered URLs.
package urls

import (
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
)

// Status is the crawl state of a URL. Larger values are further along, so
// a stored status is only ever replaced by a larger one.
type Status int

const (
	StatusNew               Status = 0
	StatusQueued            Status = 5
	StatusAssigned          Status = 10
	StatusErrorTimeout      Status = 20
	StatusError404          Status = 30
	StatusErrorOther        Status = 40
	StatusErrorRobotsDenied Status = 50
	StatusCrawled           Status = 100
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusQueued:
		return "QUEUED"
	case StatusAssigned:
		return "ASSIGNED"
	case StatusErrorTimeout:
		return "ERROR_TIMEOUT"
	case StatusError404:
		return "ERROR_404"
	case StatusErrorOther:
		return "ERROR_OTHER"
	case StatusErrorRobotsDenied:
		return "ERROR_ROBOTS_DENIED"
	case StatusCrawled:
		return "CRAWLED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Crawled reports whether a crawl was attempted, successfully or not.
func (s Status) Crawled() bool {
	return s >= StatusErrorTimeout
}

// Crawler error names that map to specific statuses.
const (
	ErrorNameAbort        = "AbortError"
	ErrorNameRobotsDenied  = "RobotsDenied"
)

// ErrorStatus classifies a failed crawl item.
func ErrorStatus(item batch.Item) Status {
	if item.Status != nil && *item.Status == http.StatusNotFound {
		return StatusError404
	}
	if item.Error != nil {
		switch item.Error.Name {
		case ErrorNameAbort:
			return StatusErrorTimeout
		case ErrorNameRobotsDenied:
			return StatusErrorRobotsDenied
		}
	}
	return StatusErrorOther
}
