package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shivavenkatesh/vettore/pkg/types"
)

var jsonNull = []byte("null")

// ReadEmbedRequest decodes a /embed body. A body that is absent, not JSON,
// not an object, or lacks "text" is reported as MsgMissingText.
func ReadEmbedRequest(r io.Reader) (types.EmbedRequest, error) {
	var req types.EmbedRequest

	fields, err := readObject(r)
	if err != nil {
		return req, err
	}
	if fields == nil {
		return req, invalid(MsgMissingText)
	}

	raw, ok := fields["text"]
	if !ok {
		return req, invalid(MsgMissingText)
	}
	if req.Text, ok = decodeString(raw); !ok {
		return req, invalid(MsgTextNotString)
	}

	return req, nil
}

// ReadSimilarityRequest decodes a /similarity body. Checks run in order:
// both keys present, texts a non-empty array, then element types.
func ReadSimilarityRequest(r io.Reader) (types.SimilarityRequest, error) {
	var req types.SimilarityRequest

	fields, err := readObject(r)
	if err != nil {
		return req, err
	}
	if fields == nil {
		return req, invalid(MsgMissingQueryOrTexts)
	}

	rawQuery, hasQuery := fields["query"]
	rawTexts, hasTexts := fields["texts"]
	if !hasQuery || !hasTexts {
		return req, invalid(MsgMissingQueryOrTexts)
	}

	var items []json.RawMessage
	if bytes.Equal(bytes.TrimSpace(rawTexts), jsonNull) || json.Unmarshal(rawTexts, &items) != nil || len(items) == 0 {
		return req, invalid(MsgTextsNotList)
	}

	var ok bool
	if req.Query, ok = decodeString(rawQuery); !ok {
		return req, invalid(MsgQueryNotString)
	}

	req.Texts = make([]string, len(items))
	for i, item := range items {
		if req.Texts[i], ok = decodeString(item); !ok {
			return req, invalid(MsgTextsNotStrings)
		}
	}

	return req, nil
}

// readObject reads the whole body and decodes it as a JSON object. It
// returns nil fields, not an error, when the body is empty or not an object.
func readObject(r io.Reader) (map[string]json.RawMessage, error) {
	if r == nil {
		return nil, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, invalid(MsgRequestBodyTooLarge)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// decodeString reports false for null and for any non-string JSON value
func decodeString(raw json.RawMessage) (string, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
