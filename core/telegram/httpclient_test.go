package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"ok":true}`))}
}

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	calls := 0
	client := BuildHTTPClient(HTTPClientOptions{
		Retries: 2,
		Backoff: -1,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			body, _ := io.ReadAll(r.Body)
			require.Equal(t, "chat_id=1", string(body))
			if calls < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
			}
			return okResponse(), nil
		}),
	})

	resp, err := client.Post("https://api.telegram.org/botX/sendMessage", "application/x-www-form-urlencoded", strings.NewReader("chat_id=1"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 3, calls)
}

func TestRetryTransportStopsOnPermanentErrors(t *testing.T) {
	calls := 0
	client := BuildHTTPClient(HTTPClientOptions{
		Retries: 3,
		Backoff: -1,
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("tls: handshake failure")
		}),
	})

	_, err := client.Get("https://api.telegram.org/botX/getMe")
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRetryTransportLeavesTimeoutsToCaller(t *testing.T) {
	testTable := []struct {
		name string
		err  error
	}{
		{name: "read timeout", err: &net.OpError{Op: "read", Err: timeoutError{}}},
		{name: "connection reset", err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			calls := 0
			client := BuildHTTPClient(HTTPClientOptions{
				Retries: 3,
				Backoff: -1,
				Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
					calls++
					return nil, testCase.err
				}),
			})

			_, err := client.Post("https://api.telegram.org/botX/sendMessage", "application/x-www-form-urlencoded", strings.NewReader("chat_id=1"))
			require.Error(t, err)
			require.Equal(t, 1, calls, "a request that may have reached the server is sent once")
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestBuildHTTPClientOutlivesPollTimeout(t *testing.T) {
	client := BuildHTTPClient(HTTPClientOptions{PollTimeout: 50 * time.Second})
	require.Greater(t, client.Timeout, 50*time.Second)
}

func TestEndpointOf(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot123:secret/sendMessage", nil)
	require.NoError(t, err)
	require.Equal(t, "sendMessage", endpointOf(req))
}
