package service

import "errors"

var (
	ErrEmptyMessage         = errors.New("message is required")
	ErrNoValidEntries       = errors.New("no valid entries found")
	ErrQueryEmbedding       = errors.New("failed to embed query")
	ErrCompletion           = errors.New("failed to generate completion")
	ErrKnowledgeUnavailable = errors.New("knowledge store unavailable")
)
