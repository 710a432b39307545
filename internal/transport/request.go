package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// DecodeResponse decodes a successful JSON response into target and maps
// failed responses onto the error taxonomy:
//
//   - 401, 403: *errors.AuthenticationError
//   - 400, 409, 422 on writes: *errors.RejectedError with the body's reason
//   - anything else outside 2xx: *errors.TransportError
//   - undecodable or oversized 2xx body: *errors.ParseError
func DecodeResponse(resp *http.Response, operation string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBytes+1))
	if err != nil {
		return errors.WrapTransport(operation, endpoint, err)
	}
	oversized := len(body) > constants.MaxResponseBytes

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, operation, endpoint, body)
	}
	if oversized {
		return errors.NewParseError("json", endpoint, fmt.Sprintf("response exceeds %d bytes", constants.MaxResponseBytes), nil)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}

func statusError(resp *http.Response, operation, endpoint string, body []byte) error {
	reason := Reason(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(endpoint, resp.StatusCode, reason)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		if resp.Request != nil && resp.Request.Method != http.MethodGet {
			return errors.NewRejectedError(resp.StatusCode, reason)
		}
	}

	return &errors.TransportError{
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    reason,
	}
}

// Reason extracts a human-readable failure reason from an error body. It
// understands {"detail": "..."} and field error maps such as
// {"nombre": ["This field is required."]}, and falls back to the raw body.
func Reason(body []byte) string {
	if len(body) > constants.MaxErrorBodyBytes {
		body = body[:constants.MaxErrorBodyBytes]
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil && len(payload) > 0 {
		if detail, ok := payload["detail"].(string); ok {
			return detail
		}
		if msg, ok := payload["error"].(string); ok {
			return msg
		}

		var parts []string
		for field, v := range payload {
			switch msgs := v.(type) {
			case []any:
				for _, m := range msgs {
					if s, ok := m.(string); ok {
						parts = append(parts, field+": "+s)
					}
				}
			case string:
				parts = append(parts, field+": "+msgs)
			}
		}
		if len(parts) > 0 {
			sort.Strings(parts)
			return strings.Join(parts, "; ")
		}
	}

	return strings.TrimSpace(string(body))
}
