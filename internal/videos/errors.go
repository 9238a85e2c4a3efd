package videos

import "errors"

var (
	// ErrResolverUnavailable indicates no resolver was configured behind the cache.
	ErrResolverUnavailable = errors.New("media resolver unavailable")
	// ErrArchiveStorageUnavailable indicates the archive has no storage backend.
	ErrArchiveStorageUnavailable = errors.New("archive storage unavailable")
	// ErrArchiveFull is returned when the archive queue cannot accept more work.
	ErrArchiveFull = errors.New("response archive queue full")

	errArchiverClosed = errors.New("response archiver closed")
)
