package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrTooMany  = errors.New("too many requests")

	// upstream provider
	ErrUpstreamUnavailable      = errors.New("upstream unavailable")
	ErrMalformedUpstreamPayload = errors.New("malformed upstream payload")

	// storage backends
	ErrStorageUnavailable = errors.New("storage unavailable")

	// embeddings and similarity search; the last two never reach callers of the core
	ErrDimensionMismatch        = errors.New("embedding dimension mismatch")
	ErrZeroVector               = errors.New("zero norm embedding")
	ErrNoEmbedding              = errors.New("track has no embedding")
	ErrPrimarySearchUnavailable = errors.New("vector index unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrMalformedUpstreamPayload)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
