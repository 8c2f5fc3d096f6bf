package stream

import "errors"

var errInvalidJSON = errors.New("payload is not valid JSON")
