package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of a failure response we read for messages
const maxErrorBody = 64 * 1024

// wireError is a best-effort union of the error envelopes the supported
// platforms return. Adapters with odd conventions (WeChat errcode inside a
// 200 response) handle those themselves.
type wireError struct {
	Error *struct {
		Code    json.Number `json:"code"`
		Type    string      `json:"type"`
		Message string      `json:"message"`
	} `json:"error"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Message string `json:"message"`
}

// doJSON performs one JSON round trip against a platform API. Transport
// failures classify as transient; HTTP failures classify by status unless
// the caller refines them afterwards.
func doJSON(ctx context.Context, client *http.Client, p Platform, method, rawURL string, headers map[string]string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", p, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", p, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return NewTransportError(p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code, message := parseWireError(raw)
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		return NewHTTPError(p, resp.StatusCode, code, message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", p, err)
	}
	return nil
}

// doForm performs a form-encoded POST (OAuth token endpoints)
func doForm(ctx context.Context, client *http.Client, p Platform, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create %s token request: %w", p, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return NewTransportError(p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code, message := parseWireError(raw)

		// invalid_grant from a token endpoint is a permanent revocation,
		// not an expired access token
		if code == "invalid_grant" || strings.Contains(string(raw), "invalid_grant") {
			return &PlatformError{
				Platform:   p,
				Class:      ClassAuthRevoked,
				StatusCode: resp.StatusCode,
				Code:       "invalid_grant",
				Message:    message,
			}
		}
		return NewHTTPError(p, resp.StatusCode, code, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s token response: %w", p, err)
	}
	return nil
}

func parseWireError(raw []byte) (code, message string) {
	var we wireError
	if err := json.Unmarshal(raw, &we); err != nil {
		return "", ""
	}
	switch {
	case we.Error != nil:
		return we.Error.Code.String(), we.Error.Message
	case we.ErrMsg != "":
		return fmt.Sprintf("%d", we.ErrCode), we.ErrMsg
	default:
		return "", we.Message
	}
}
