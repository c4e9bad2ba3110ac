package gateway

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Bytes is a byte sequence that travels as a JSON array of numbers,
// matching the wire format of the verification components, rather than
// the base64 string encoding/json would use for []byte.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make(Bytes, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return errors.Errorf("byte sequence element %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// sessionFields are the optional fields accepted on every operation
// request.
type sessionFields struct {
	SessionID string `json:"session_id"`
	Proxy     string `json:"proxy"`
}

type simpleMatchRequest struct {
	sessionFields
	Gt        string `json:"gt"`
	Challenge string `json:"challenge"`
}

type registerTestRequest struct {
	sessionFields
	URL string `json:"url"`
}

type getCSRequest struct {
	sessionFields
	Gt        string `json:"gt"`
	Challenge string `json:"challenge"`
	W         string `json:"w"`
}

type getTypeRequest struct {
	sessionFields
	Gt        string `json:"gt"`
	Challenge string `json:"challenge"`
	W         string `json:"w"`
}

type verifyRequest struct {
	sessionFields
	Gt        string `json:"gt"`
	Challenge string `json:"challenge"`
	W         string `json:"w"`
}

type generateWRequest struct {
	sessionFields
	Key       string `json:"key"`
	Gt        string `json:"gt"`
	Challenge string `json:"challenge"`
	C         Bytes  `json:"c"`
	S         string `json:"s"`
}

type testRequest struct {
	sessionFields
	URL string `json:"url"`
}

// envelope is the uniform response shape. Every handled request yields
// exactly one envelope.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// tokenPair carries two-token results (register_test, verify).
type tokenPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// csResponse carries the challenge components.
type csResponse struct {
	C Bytes  `json:"c"`
	S string `json:"s"`
}
