package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBorrowingNotFound = errors.New("borrowing not found")
	// ErrBookBorrowed blocks a delete while at least one borrowing
	// referencing the book is still active. This is the single
	// user-facing validation failure of the console.
	ErrBookBorrowed = errors.New("book has active borrowings and cannot be deleted")
)

type ContextKey string

const (
	RequestIDPrefix        string     = "r"
	ContextRequestID       ContextKey = "request.id"
	ContextRequestNumber   ContextKey = "request.number"
	ContextSessionUserID   ContextKey = "session.userid"
	ContextSessionUserRole ContextKey = "session.role"
)

// Headers the fronting authentication layer injects on each request.
const (
	SessionUserIDHeader   = "X-Session-UserID"
	SessionUserRoleHeader = "X-Session-Role"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val := ctx.Value(ContextRequestNumber); val != nil {
		return val.(uint64)
	}
	return 0
}

// DecodeBookDraftRequestBody is a helper function to read the content of a book creation request.
func DecodeBookDraftRequestBody(r *http.Request, draft *BookDraft) error {
	if r.Body == nil {
		return errors.New("invalid create book request body")
	}
	return json.NewDecoder(r.Body).Decode(draft)
}

// DecodeBookRequestBody is a helper function to read the content of a book update request.
func DecodeBookRequestBody(r *http.Request, book *Book) error {
	if r.Body == nil {
		return errors.New("invalid update book request body")
	}
	return json.NewDecoder(r.Body).Decode(book)
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
