// Package client calls the custody API with the stored session token.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crucial707/asset-custody/cmd/cli/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
	Body    []byte
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Fields)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Call sends payload as JSON to path and decodes the answer into out.
// Authenticated calls attach the stored token.
func Call(method, path string, payload, out any) error {
	token, err := config.LoadToken()
	if err != nil {
		return err
	}
	return do(method, path, token, payload, out)
}

// CallAnonymous is Call without a session token.
func CallAnonymous(method, path string, payload, out any) error {
	return do(method, path, "", payload, out)
}

func do(method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: data}
		var e struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Fields = e.Fields
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}
