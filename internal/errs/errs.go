// Package errs holds the error taxonomy shared by the rename pipeline.
package errs

import "errors"

var (
	// ErrConfiguration reports invalid options. It is raised before any file is touched.
	ErrConfiguration = errors.New("configuration error")
	// ErrMalformedReply reports a model reply that is not a JSON object with a keywords array.
	ErrMalformedReply = errors.New("malformed model reply")
	// ErrEmptyResult reports a filename that is empty after sanitizing.
	ErrEmptyResult = errors.New("empty filename after sanitizing keywords")
	// ErrFilesystem reports a rename that could not be carried out.
	ErrFilesystem = errors.New("filesystem error")
)
