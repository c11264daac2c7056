package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrTooMany
	ErrInternal
	ErrUpstreamUnavailable
	ErrUpstreamPayload
	ErrStorageUnavailable
	ErrEmbeddingUnavailable
)
