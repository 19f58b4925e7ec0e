package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Paintersrp/procsup/internal/api"
	procschema "github.com/Paintersrp/procsup/schema"
)

// decodeCreateRequest validates body against the create schema and decodes
// it. Validation failures wrap api.ErrInvalidRequest.
func decodeCreateRequest(body []byte) (api.CreateRequest, error) {
	var req api.CreateRequest

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return req, fmt.Errorf("%w: decode body: %v", api.ErrInvalidRequest, err)
	}
	if err := procschema.Create.Validate(doc); err != nil {
		var vErr *procschema.ValidationError
		if errors.As(err, &vErr) {
			return req, fmt.Errorf("%w:\n%v", api.ErrInvalidRequest, vErr)
		}
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: decode body: %v", api.ErrInvalidRequest, err)
	}
	return req, nil
}
