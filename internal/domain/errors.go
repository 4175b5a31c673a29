package domain

import "errors"

// ErrInvalidURL indicates a page URL that does not match the expected
// episode-page shape.
var ErrInvalidURL = errors.New("invalid episode page URL")

// ErrNoAccessibleStream indicates no usable guest-accessible stream variant
var ErrNoAccessibleStream = errors.New("no guest-accessible stream variant")

// ErrMissingDecryptionKey indicates a manifest that parses but declares no
// key locator. Fatal: a keyless CBC-encrypted stream cannot be decrypted.
var ErrMissingDecryptionKey = errors.New("missing decryption key in playlist")
