package tooldispatch

import "bytes"

// bytesReader wraps raw JSON Schema bytes as an io.Reader for the
// jsonschema compiler's AddResource call.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
