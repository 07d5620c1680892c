package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"confcheckin/internal/apierror"
	"confcheckin/internal/dto"
)

// HTTPSubmitter posts tokens to POST /v1/check-in with a staff bearer token.
type HTTPSubmitter struct {
	baseURL    string
	staffToken string
	client     *http.Client
}

func NewHTTPSubmitter(baseURL, staffToken string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		staffToken: staffToken,
		client:     &http.Client{Timeout: timeout},
	}
}

// Submit maps the backend answer to a Result. Transport failures are returned
// as errors; the loop renders them as Error and never retries on its own.
func (s *HTTPSubmitter) Submit(ctx context.Context, token string) (Result, error) {
	body, err := json.Marshal(dto.CheckInRequest{QRToken: token})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/check-in", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.staffToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out dto.CheckInResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return Result{Outcome: Error, Message: "unexpected response from server"}, nil
		}
		user := User{Name: out.User.Name, Email: out.User.Email}
		switch {
		case out.Success:
			return Result{Outcome: Success, User: user}, nil
		case out.AlreadyCheckedIn:
			return Result{Outcome: AlreadyCheckedIn, User: user, Message: "already checked in"}, nil
		}
		return Result{Outcome: Error, Message: "unexpected response from server"}, nil
	case http.StatusNotFound:
		return Result{Outcome: Error, Message: "attendee not found"}, nil
	case http.StatusUnauthorized:
		return Result{Outcome: Error, Message: "station not authorized, log in again"}, nil
	default:
		msg := http.StatusText(resp.StatusCode)
		var env apierror.APIError
		if json.Unmarshal(raw, &env) == nil && env.Detail != "" {
			msg = env.Detail
		}
		return Result{Outcome: Error, Message: msg}, nil
	}
}
