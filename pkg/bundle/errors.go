package bundle

import "errors"

var (
	ErrInvalidSignature       = errors.New("invalid bundle signature: expected UnityFS")
	ErrUnsupportedVersion     = errors.New("bundle format version not supported")
	ErrUnsupportedCompression = errors.New("compression type not supported")
	ErrCorruptBlock           = errors.New("block decompressed to an unexpected size")
	ErrNoSerializedFile       = errors.New("bundle contains no serialized file")
	ErrNoTextAsset            = errors.New("serialized file contains no TextAsset")
	ErrUnsupportedSerialized  = errors.New("serialized file version not supported")
)
