package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poslog/poslog/pkg/models"
)

// Pagination limits for GET /api/logs.
const (
	defaultListLimit = 200
	maxListLimit     = 500
)

// allowedListParams is the fixed set of query keys the list endpoint
// understands. Anything else fails the request instead of being silently
// ignored.
var allowedListParams = map[string]bool{
	"level":       true,
	"label":       true,
	"source":      true,
	"start":       true,
	"end":         true,
	"q":           true,
	"scenario_id": true,
	"limit":       true,
	"offset":      true,
	"cursor":      true,
	"since_id":    true,
}

// paramError is a validation failure in the query string; it surfaces as
// HTTP 400.
type paramError struct {
	msg string
}

func (e *paramError) Error() string {
	return e.msg
}

// parseListParams translates the raw query string into a typed filter and
// page window.
func parseListParams(r *http.Request) (models.ListFilter, models.ListPage, error) {
	var filter models.ListFilter
	page := models.ListPage{Limit: defaultListLimit}

	query := r.URL.Query()
	for key := range query {
		if !allowedListParams[key] {
			return filter, page, &paramError{msg: fmt.Sprintf("unknown query parameter: %s", key)}
		}
	}

	filter.Levels = splitSet(query["level"])
	filter.Labels = splitSet(query["label"])
	filter.Sources = splitSet(query["source"])

	var err error
	if filter.Start, err = parseStart(query.Get("start")); err != nil {
		return filter, page, err
	}
	if filter.End, err = parseEnd(query.Get("end")); err != nil {
		return filter, page, err
	}

	filter.Search = query.Get("q")

	if scenarioID := query.Get("scenario_id"); scenarioID != "" {
		if err := models.ValidateScenarioID(scenarioID); err != nil {
			return filter, page, &paramError{msg: "invalid scenario_id"}
		}
		filter.ScenarioID = scenarioID
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxListLimit {
			return filter, page, &paramError{msg: fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit)}
		}
		page.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filter, page, &paramError{msg: "offset must be a non-negative integer"}
		}
		page.Offset = offset
	}

	// cursor and since_id are aliases; cursor wins when both are set.
	sinceStr := query.Get("since_id")
	if cursor := query.Get("cursor"); cursor != "" {
		sinceStr = cursor
	}
	if sinceStr != "" {
		sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
		if err != nil || sinceID < 0 {
			return filter, page, &paramError{msg: "cursor must be a non-negative integer"}
		}
		filter.SinceID = sinceID
	}

	return filter, page, nil
}

// splitSet parses a multi-value parameter: the key may be repeated and
// each occurrence may hold a comma-separated list. Empty elements are
// dropped.
func splitSet(values []string) []string {
	var out []string
	for _, value := range values {
		for _, p := range strings.Split(value, ",") {
			if p != "" {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseStart validates the range start and normalizes it to the
// canonical stored timestamp form so the lexicographic comparison in the
// store is exact.
func parseStart(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	normalized, err := models.NormalizeTimestamp(value, time.Time{})
	if err != nil {
		return "", &paramError{msg: "start must be an RFC3339 timestamp"}
	}
	return normalized, nil
}

// parseEnd validates the range end. Ends without sub-second digits are
// widened to the last millisecond of their second so the bound stays
// inclusive for records stored at finer precision.
func parseEnd(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	normalized, err := models.NormalizeRangeEnd(value)
	if err != nil {
		return "", &paramError{msg: "end must be an RFC3339 timestamp"}
	}
	return normalized, nil
}
