package models

import "errors"

var (
	ErrUnreadableImage  = errors.New("unreadable image")
	ErrNoFaceDetected   = errors.New("no face detected in image")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPersonNotFound   = errors.New("person not found")
	ErrInvalidName      = errors.New("person name must not be empty")
	ErrImageNotFound    = errors.New("image not found")
)
