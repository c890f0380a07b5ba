package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Kind labels a failed Telegram API call for logs and retry decisions.
type Kind string

const (
	KindNone    Kind = ""
	KindTimeout Kind = "timeout"
	KindDNS     Kind = "dns"
	KindDial    Kind = "dial"
	KindReset   Kind = "reset"
	KindTLS     Kind = "tls"
	KindFlood   Kind = "flood"
	KindHTTP4xx Kind = "http_4xx"
	KindHTTP5xx Kind = "http_5xx"
	KindUnknown Kind = "unknown"
)

// Transient reports whether the same request may succeed if sent again.
// Flood waits are not transient here; see RetryAfter.
func (k Kind) Transient() bool {
	switch k {
	case KindTimeout, KindDial, KindReset:
		return true
	}
	return false
}

// Classify maps err onto a Kind. Network causes are checked before HTTP status codes.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindReset
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return KindTLS
	}

	if _, ok := RetryAfter(err); ok {
		return KindFlood
	}
	switch status := StatusCode(err); {
	case status >= 500:
		return KindHTTP5xx
	case status >= 400:
		return KindHTTP4xx
	}
	return KindUnknown
}

// ShouldRetry reports whether err is a transient network failure worth retrying.
func ShouldRetry(err error) bool {
	return Classify(err).Transient()
}

// Unsent reports whether err shows the request never reached Telegram, so
// sending it again cannot duplicate a message. Only dial failures qualify:
// after a timeout or a reset the server may already have acted on it.
func Unsent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// RetryAfter returns the wait Telegram asked for when err is a flood error.
func RetryAfter(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	var floodPtr *tele.FloodError
	if errors.As(err, &floodPtr) && floodPtr != nil {
		return time.Duration(floodPtr.RetryAfter) * time.Second, true
	}
	return 0, false
}

// StatusCode extracts the HTTP status of a Telegram API error. Telebot renders
// unknown API errors as "description (code)", so the trailing number is used as a fallback.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if _, ok := RetryAfter(err); ok {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	open := strings.LastIndex(msg, "(")
	if open < 0 || !strings.HasSuffix(msg, ")") {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : len(msg)-1]))
	if convErr != nil {
		return 0
	}
	return code
}
