package repository

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrNoFreeLots       = errors.New("no free lots")
	ErrSessionNotActive = errors.New("session not active")
)
