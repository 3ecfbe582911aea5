package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrSendFailed is returned when the request could not be created or sent
	ErrSendFailed = errors.New("sending failed")
	// ErrResponseReadFail is returned when the response to the request could not be read
	ErrResponseReadFail = errors.New("failed to read response")
	// ErrBadResponse is returned when the request did not receive a 2** response
	ErrBadResponse = errors.New("bad response")
)

// DefaultClientTimeout bounds requests made with SendMsg
const DefaultClientTimeout = 30 * time.Second

// RequestOption can be used to modify the request that is to be sent
type RequestOption func(*http.Request)

// JsonRequest sets the content type to application/json
func JsonRequest() RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
	}
}

// SendMsg creates and sends a HTTP Request to the specified address.
// A non 2** response is returned together with ErrBadResponse.
func SendMsg(method, toAddr, msg string, options ...RequestOption) (string, error) {
	client := &http.Client{Timeout: DefaultClientTimeout}
	if !strings.HasPrefix(toAddr, "http://") && !strings.HasPrefix(toAddr, "https://") {
		toAddr = "http://" + toAddr
	}
	req, err := http.NewRequest(method, toAddr, bytes.NewBufferString(msg))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSendFailed, err)
	}

	for _, o := range options {
		o(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	bodyB, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrResponseReadFail
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(bodyB), fmt.Errorf("%w: %s", ErrBadResponse, resp.Status)
	}
	return string(bodyB), nil
}
