// Package remote implements the remote catalog collaborator over the
// catalog's REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/agentstation/catalogsync/internal/transport"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/records"
)

const productsPath = "/productos/"

// maxPages bounds how many pagination links a fetch follows.
const maxPages = 1000

// Source is the REST remote catalog.
type Source struct {
	baseURL string
	client  *transport.Client
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the transport client.
func WithClient(client *transport.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// New creates a Source for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Source, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.NewValidationError("remote_url", baseURL, "is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, errors.NewValidationError("remote_url", baseURL, "must be an http or https URL")
	}

	s := &Source{
		baseURL: baseURL,
		client:  transport.New(&transport.BearerAuth{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchCatalog returns the full remote catalog. Both plain list responses
// and paginated {"results", "next"} responses are accepted.
func (s *Source) FetchCatalog(ctx context.Context, credential string) ([]records.RemoteRecord, error) {
	logger := logging.FromContext(ctx)

	var out []records.RemoteRecord
	pageURL := s.baseURL + productsPath
	for pages := 0; pageURL != ""; pages++ {
		if pages >= maxPages {
			return nil, errors.NewParseError("json", productsPath, "too many pages", nil)
		}

		resp, err := s.client.Get(ctx, pageURL, credential, "fetch")
		if err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if err := transport.DecodeResponse(resp, "fetch", &raw); err != nil {
			return nil, err
		}

		products, next, err := decodeList(raw)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			rec, err := p.toRecord()
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if pageURL, err = s.resolveNext(pageURL, next); err != nil {
			return nil, err
		}
	}

	logger.Debug().Int("count", len(out)).Msg("Fetched remote catalog")
	return out, nil
}

// CreateRecord creates a remote record and returns its id. The idempotency
// key travels in the Idempotency-Key header.
func (s *Source) CreateRecord(ctx context.Context, credential string, fields records.Fields, idempotencyKey string) (records.RemoteID, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[constants.IdempotencyKeyHeader] = idempotencyKey
	}

	resp, err := s.client.PostJSON(ctx, s.baseURL+productsPath, credential, "create", newCreateRequest(fields), headers)
	if err != nil {
		return 0, err
	}

	var created product
	if err := transport.DecodeResponse(resp, "create", &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, errors.NewParseError("json", productsPath, "create response without id", nil)
	}
	return records.RemoteID(created.ID), nil
}

// resolveNext resolves a pagination link against the page that carried it.
// Links leaving the API origin are refused so the credential stays with it.
func (s *Source) resolveNext(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", errors.WrapParse("url", current, err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", errors.WrapParse("url", next, err)
	}
	resolved := base.ResolveReference(ref)

	origin, err := url.Parse(s.baseURL)
	if err != nil {
		return "", errors.WrapParse("url", s.baseURL, err)
	}
	if !strings.EqualFold(resolved.Scheme, origin.Scheme) || !strings.EqualFold(resolved.Host, origin.Host) {
		return "", errors.NewParseError("json", productsPath, "next link points outside "+origin.Host, nil)
	}
	return resolved.String(), nil
}

func decodeList(raw json.RawMessage) ([]product, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var products []product
		if err := json.Unmarshal(raw, &products); err != nil {
			return nil, "", errors.WrapParse("json", productsPath, err)
		}
		return products, "", nil
	}

	var p page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, "", errors.WrapParse("json", productsPath, err)
	}
	if p.Results == nil {
		return nil, "", errors.NewParseError("json", productsPath, "response is neither a list nor a page", nil)
	}
	next := ""
	if p.Next != nil {
		next = *p.Next
	}
	return p.Results, next, nil
}
