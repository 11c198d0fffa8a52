package domain

import "errors"

// Error kinds returned by the content engine. Callers match them with errors.Is;
// the returned errors wrap these with the offending id.
var (
	ErrSectionNotFound      = errors.New("section not found")
	ErrBlockNotFound        = errors.New("block not found")
	ErrSectionLocked        = errors.New("section is locked")
	ErrUnsupportedBlockType = errors.New("unsupported block type")
	ErrInvalidIndex         = errors.New("invalid index")
	ErrDuplicateID          = errors.New("duplicate id")
	ErrImmutableField       = errors.New("field is immutable")
	ErrInvalidPatch         = errors.New("invalid patch")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrMissingID            = errors.New("missing id")
	ErrInvalidTree          = errors.New("invalid content tree")
)
