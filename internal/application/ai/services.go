package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
)

// Observer is notified about every model call.
type Observer interface {
	ObserveModelCall(schema, outcome string)
}

// Service wraps an ai.Client and validates every response against the
// request schema before handing it to callers.
type Service struct {
	client   ai.Client
	observer Observer
}

func NewService(client ai.Client, observer Observer) *Service {
	return &Service{client: client, observer: observer}
}

// Object runs req and returns the validated top-level object.
func (s *Service) Object(ctx context.Context, req ai.Request) (map[string]any, error) {
	raw, err := s.client.Complete(ctx, req)
	if err != nil {
		s.observe(req.Name, "error")
		return nil, fmt.Errorf("%s model call: %w", req.Name, err)
	}

	obj, err := Validate(req.Name, req.Schema, raw)
	if err != nil {
		s.observe(req.Name, "malformed")
		slog.Warn("model output rejected", "schema", req.Name, "error", err)
		return nil, err
	}
	s.observe(req.Name, "ok")
	return obj, nil
}

// Decode runs req, validates the shape and decodes the object into T.
func Decode[T any](ctx context.Context, s *Service, req ai.Request) (T, error) {
	var out T
	obj, err := s.Object(ctx, req)
	if err != nil {
		return out, err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("re-encode %s output: %w", req.Name, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, &ai.ShapeError{Schema: req.Name, Expected: "decodable object", Got: err.Error()}
	}
	return out, nil
}

func (s *Service) observe(schema, outcome string) {
	if s.observer != nil {
		s.observer.ObserveModelCall(schema, outcome)
	}
}

// Validate parses raw model text and checks it against def. The root must be
// a JSON object; any other container is reported as a ShapeError.
func Validate(name string, def jsonschema.Definition, raw string) (map[string]any, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, &ai.ShapeError{Schema: name, Expected: "object", Got: "empty output"}
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, &ai.ShapeError{Schema: name, Expected: "object", Got: "invalid JSON"}
	}
	if err := check(name, "", def, v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ai.ShapeError{Schema: name, Expected: "object", Got: kindOf(v)}
	}
	return obj, nil
}

func check(name, path string, def jsonschema.Definition, v any) error {
	if v == nil {
		if def.Nullable || def.Type == "" || def.Type == jsonschema.Null {
			return nil
		}
		return &ai.ShapeError{Schema: name, Path: path, Expected: string(def.Type), Got: "null"}
	}

	switch def.Type {
	case jsonschema.Object:
		obj, ok := v.(map[string]any)
		if !ok {
			return &ai.ShapeError{Schema: name, Path: path, Expected: "object", Got: kindOf(v)}
		}
		for _, field := range def.Required {
			if _, ok := obj[field]; !ok {
				return &ai.ShapeError{Schema: name, Path: join(path, field), Expected: "required field", Got: "missing"}
			}
		}
		for field, sub := range def.Properties {
			fv, ok := obj[field]
			if !ok {
				continue
			}
			if err := check(name, join(path, field), sub, fv); err != nil {
				return err
			}
		}
	case jsonschema.Array:
		arr, ok := v.([]any)
		if !ok {
			return &ai.ShapeError{Schema: name, Path: path, Expected: "array", Got: kindOf(v)}
		}
		if def.Items != nil {
			for i, item := range arr {
				if err := check(name, fmt.Sprintf("%s[%d]", path, i), *def.Items, item); err != nil {
					return err
				}
			}
		}
	case jsonschema.String:
		if _, ok := v.(string); !ok {
			return &ai.ShapeError{Schema: name, Path: path, Expected: "string", Got: kindOf(v)}
		}
	case jsonschema.Number, jsonschema.Integer:
		if _, ok := v.(json.Number); !ok {
			return &ai.ShapeError{Schema: name, Path: path, Expected: string(def.Type), Got: kindOf(v)}
		}
	case jsonschema.Boolean:
		if _, ok := v.(bool); !ok {
			return &ai.ShapeError{Schema: name, Path: path, Expected: "boolean", Got: kindOf(v)}
		}
	}
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// stripFences removes a ```json ... ``` wrapper some models add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
