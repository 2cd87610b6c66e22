package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ehr/maternity/internal/platform/store"
)

// Shape tags the envelope a response body was recognized as.
type Shape string

const (
	ShapeBare   Shape = "bare"
	ShapeData   Shape = "data"
	ShapeSpring Shape = "spring"
)

// envelope covers both the {data} and the Spring page shapes.
type envelope struct {
	Data          json.RawMessage `json:"data"`
	Total         *int            `json:"total"`
	Page          *int            `json:"page"`
	Size          *int            `json:"size"`
	Content       json.RawMessage `json:"content"`
	TotalElements *int            `json:"totalElements"`
	Number        *int            `json:"number"`
}

// List is a decoded collection response.
type List[T any] struct {
	Shape Shape
	Items []T
	Info  store.PageInfo
}

// DecodeList decodes a collection response: a bare array, {data: [...]} or a
// Spring page {content: [...], totalElements, number, size}. Anything else is
// ErrInvalidResponse.
func DecodeList[T any](body []byte) (List[T], error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return List[T]{}, newDecodeError(errors.New("empty body"))
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return List[T]{}, newDecodeError(err)
		}
		return List[T]{Shape: ShapeBare, Items: nonNil(items), Info: store.PageInfo{Size: len(items), Total: len(items)}}, nil
	case '{':
	default:
		return List[T]{}, newDecodeError(errors.New("unexpected json value"))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return List[T]{}, newDecodeError(err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return List[T]{}, newDecodeError(err)
	}
	_, hasData := keys["data"]

	switch {
	case isPresent(env.Content):
		var items []T
		if err := json.Unmarshal(env.Content, &items); err != nil {
			return List[T]{}, newDecodeError(err)
		}
		info := store.PageInfo{Total: deref(env.TotalElements, len(items)), Page: deref(env.Number, 0), Size: deref(env.Size, len(items))}
		return List[T]{Shape: ShapeSpring, Items: nonNil(items), Info: info}, nil

	case hasData:
		data := bytes.TrimSpace(env.Data)
		if !isPresent(data) {
			return List[T]{Shape: ShapeData, Items: []T{}}, nil
		}
		if len(data) > 0 && data[0] == '{' {
			// {data: {content: [...]}} from paginated endpoints behind a wrapper
			inner, err := DecodeList[T](data)
			if err != nil {
				return List[T]{}, err
			}
			inner.Shape = ShapeData
			return inner, nil
		}
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return List[T]{}, newDecodeError(err)
		}
		info := store.PageInfo{Total: deref(env.Total, len(items)), Page: deref(env.Page, 0), Size: deref(env.Size, len(items))}
		return List[T]{Shape: ShapeData, Items: nonNil(items), Info: info}, nil
	}

	return List[T]{}, newDecodeError(errors.New("no recognized collection envelope"))
}

// DecodeOne decodes a single-entity response, either bare or {data: {...}}.
func DecodeOne[T any](body []byte) (T, Shape, error) {
	var zero T
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return zero, "", newDecodeError(errors.New("expected a json object"))
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, "", newDecodeError(err)
	}

	shape := ShapeBare
	raw := body
	if isPresent(env.Data) {
		data := bytes.TrimSpace(env.Data)
		if data[0] != '{' {
			return zero, "", newDecodeError(errors.New("data is not an object"))
		}
		shape, raw = ShapeData, data
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, "", newDecodeError(err)
	}
	return out, shape, nil
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func deref(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
