package entity

import "errors"

var (
	// ErrConnection means the tool server could not be spawned or the
	// handshake did not complete.
	ErrConnection = errors.New("tool server connection failed")
	// ErrNotConnected is a programming error: a tool was invoked before
	// the catalog connected.
	ErrNotConnected = errors.New("tool server not connected")
	ErrUnknownTool  = errors.New("unknown tool")
	ErrTransport    = errors.New("tool server transport failure")

	ErrFeatureNotFound = errors.New("feature file not found")
	ErrFeatureParse    = errors.New("gherkin parse error")
	ErrNoScenarios     = errors.New("feature has no scenarios")
)
