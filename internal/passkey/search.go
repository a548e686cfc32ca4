package passkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_session_query = "session.query"

	resultsScriptId = "last-search-results"
)

// Query fetches the hotel list once. Hotels without availability are included,
// filtering is left to the caller.
func (s *Session) Query(ctx context.Context) ([]Listing, error) {
	ctx, span := tracer.Start(ctx, "session:Query")
	defer span.End()

	fail := func(err *QueryError) ([]Listing, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Kind.String())
		s.tel.ReportBroken(report_session_query, err)
		return nil, err
	}

	s.tel.ReportInfo("loading search results...")
	res, err := s.http.R().
		SetContext(ctx).
		Get(s.listPath)
	if err != nil {
		return fail(&QueryError{Kind: QueryTransport, Err: fmt.Errorf("fetch: %w", err)})
	}
	if res.StatusCode() != http.StatusOK {
		return fail(&QueryError{
			Kind:   QueryBadStatus,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("fetch: request failed"),
		})
	}

	payload, err := extractResults(res.Body())
	if err != nil {
		return fail(&QueryError{Kind: QueryUnparseable, Err: err})
	}

	var listings []Listing
	err = json.Unmarshal(payload, &listings)
	if err != nil {
		return fail(&QueryError{Kind: QueryUnparseable, Err: fmt.Errorf("unmarshal results: %w", err)})
	}

	span.SetAttributes(attribute.Int("listings", len(listings)))
	s.tel.ReportCount(report_session_query, int64(len(listings)))

	return listings, nil
}

// extractResults finds the JSON payload the results page embeds in
// <script id="last-search-results">.
func extractResults(body []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var payload string
	found := false
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if !strings.EqualFold(script.AttrOr("id", ""), resultsScriptId) {
			return true
		}
		payload = strings.TrimSpace(script.Text())
		found = true
		return false
	})

	if !found || payload == "" {
		return nil, fmt.Errorf("failed to find search results")
	}
	return []byte(payload), nil
}
