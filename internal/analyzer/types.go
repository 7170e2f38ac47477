package analyzer

import "errors"

// Framework represents a supported web framework.
type Framework string

const (
	FrameworkFlask Framework = "flask"
)

// ErrUnsupportedFramework is returned when no recognized framework marker is
// found after a full scan of the snapshot.
var ErrUnsupportedFramework = errors.New("could not detect a supported framework (only Flask is supported)")

// marker describes how a framework is recognized in source files. Adding a
// framework is a data change here, not a code change.
type marker struct {
	Framework Framework
	Language  string
	Extension string
	Pattern   string
}

var frameworkMarkers = []marker{
	{
		Framework: FrameworkFlask,
		Language:  "python",
		Extension: ".py",
		Pattern:   "from flask import Flask",
	},
}

// FrameworkDescriptor is the structured identification of an application's
// runtime framework. Produced once per run, read-only afterward.
type FrameworkDescriptor struct {
	Framework  Framework `json:"framework"`
	Language   string    `json:"language"`
	Entrypoint string    `json:"entrypoint"`
}
