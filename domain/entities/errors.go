package entities

import "errors"

var (
	// ErrConfiguration marks missing or invalid configuration, e.g. credentials
	ErrConfiguration = errors.New("configuration error")

	// ErrSessionIO marks a failure to persist or restore the session snapshot
	ErrSessionIO = errors.New("session io error")

	// ErrNavigation marks a timeout or missing element while driving the page
	ErrNavigation = errors.New("navigation error")

	// ErrDataIntegrity marks page content that does not have the expected shape
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrTimeout is returned by views when a bounded wait elapses
	ErrTimeout = errors.New("timeout")
)
