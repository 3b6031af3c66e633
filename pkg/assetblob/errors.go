package assetblob

import "errors"

var (
	ErrCorruptBlob      = errors.New("corrupt asset blob")
	ErrChecksumMismatch = errors.New("asset blob checksum mismatch")
	ErrInvalidOptions   = errors.New("invalid asset blob options")
	ErrFieldOverflow    = errors.New("asset blob field overflow")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrDuplicateName    = errors.New("duplicate asset name")
)
