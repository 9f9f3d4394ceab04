package serde

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/CaliLuke/go-odata/data"
)

// errorDocumentSchema describes both the v4 {"error":...} and the v3
// {"odata.error":...} error documents.
const errorDocumentSchema = `{
  "type": "object",
  "$defs": {
    "message": {
      "oneOf": [
        {"type": "string"},
        {"type": "object", "required": ["value"], "properties": {"value": {"type": "string"}}}
      ]
    },
    "detail": {
      "type": "object",
      "properties": {
        "code": {"type": "string"},
        "message": {"$ref": "#/$defs/message"},
        "target": {"type": ["string", "null"]}
      }
    },
    "body": {
      "type": "object",
      "required": ["code", "message"],
      "properties": {
        "code": {"type": "string"},
        "message": {"$ref": "#/$defs/message"},
        "target": {"type": ["string", "null"]},
        "details": {"type": "array", "items": {"$ref": "#/$defs/detail"}},
        "innererror": {"type": "object"}
      }
    }
  },
  "oneOf": [
    {"required": ["error"], "properties": {"error": {"$ref": "#/$defs/body"}}},
    {"required": ["odata.error"], "properties": {"odata.error": {"$ref": "#/$defs/body"}}}
  ]
}`

var (
	errorSchemaOnce sync.Once
	errorSchema     *jsonschema.Schema
	errorSchemaErr  error
)

func loadErrorSchema() (*jsonschema.Schema, error) {
	errorSchemaOnce.Do(func() {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(errorDocumentSchema), rs); err != nil {
			errorSchemaErr = fmt.Errorf("loading error document schema: %w", err)
			return
		}
		errorSchema = rs
	})
	return errorSchema, errorSchemaErr
}

func validateErrorDocument(buf []byte) error {
	rs, err := loadErrorSchema()
	if err != nil {
		return err
	}
	keyErrs, err := rs.ValidateBytes(context.Background(), buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.Error())
		}
		return fmt.Errorf("%w: not an error document: %s", ErrUnexpectedElement, strings.Join(msgs, "; "))
	}
	return nil
}

func readJSONError(d *Deserializer, buf []byte) (*data.ResWrap[*data.Error], error) {
	root, err := parseJSONObject(buf)
	if err != nil {
		return nil, err
	}
	if d.validateErrors {
		if err := validateErrorDocument(buf); err != nil {
			return nil, err
		}
	}
	body := root.Get("error")
	if !body.Exists() {
		body = root.Get(`odata\.error`)
	}
	if !body.IsObject() {
		return nil, fmt.Errorf("%w: missing error member", ErrUnexpectedElement)
	}

	e := &data.Error{
		Code:    body.Get("code").String(),
		Message: jsonErrorMessage(body.Get("message")),
		Target:  body.Get("target").String(),
	}
	for _, det := range body.Get("details").Array() {
		e.Details = append(e.Details, data.ErrorDetail{
			Code:    det.Get("code").String(),
			Message: jsonErrorMessage(det.Get("message")),
			Target:  det.Get("target").String(),
		})
	}
	if inner := body.Get("innererror"); inner.IsObject() {
		if m, ok := inner.Value().(map[string]any); ok {
			e.InnerError = m
		}
	}
	return data.NewResWrap(nil, nil, e), nil
}

// jsonErrorMessage accepts both "text" and {"lang":..,"value":"text"}.
func jsonErrorMessage(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("value").String()
	}
	return v.String()
}
