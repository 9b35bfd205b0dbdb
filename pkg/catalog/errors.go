package catalog

import "errors"

var (
	ErrDuplicateInternalID = errors.New("an internal id with this string already exists")
	ErrMissingInternalID   = errors.New("an internal id with this string does not exist")
	ErrNoEntry             = errors.New("no entry found for this internal id")
	ErrNoDependencies      = errors.New("no dependency found for this entry")
	ErrHashPrimaryKey      = errors.New("primary key is a hash, expected a string")
	ErrMissingExtraData    = errors.New("no extra data available to use as a template")
	ErrTablesOutOfSync     = errors.New("catalog key and bucket tables are out of sync")
)
