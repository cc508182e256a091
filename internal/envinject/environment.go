// environment.go normalizes compose environment blocks in mapping or list form.
package envinject

import (
	"fmt"
	"strings"
)

// Form records how an environment block was written in the manifest.
type Form int

const (
	// FormMapping is `KEY: value`.
	FormMapping Form = iota
	// FormList is `- KEY=value` or a bare `- KEY`.
	FormList
)

// Environment is an ordered key/value view of a service environment block.
type Environment struct {
	Form   Form
	keys   []string
	values map[string]string
	// raw keeps the original mapping-form value so untouched entries are
	// written back with their original YAML type.
	raw map[string]any
	// bare marks list entries written without "=".
	bare map[string]bool
}

// NewEnvironment returns an empty environment in the given form.
func NewEnvironment(form Form) *Environment {
	return &Environment{
		Form:   form,
		values: map[string]string{},
		raw:    map[string]any{},
		bare:   map[string]bool{},
	}
}

// ParseEnvironment normalizes a manifest environment block. A nil block yields
// an empty mapping-form environment.
func ParseEnvironment(block any) (*Environment, error) {
	switch typed := block.(type) {
	case nil:
		return NewEnvironment(FormMapping), nil
	case map[string]any:
		env := NewEnvironment(FormMapping)
		for _, key := range sortedKeys(typed) {
			val := typed[key]
			env.add(key, scalarString(val))
			env.raw[key] = val
		}
		return env, nil
	case []any:
		env := NewEnvironment(FormList)
		for i, item := range typed {
			entry, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("environment entry %d must be a string, got %T", i, item)
			}
			key, value, hasValue := strings.Cut(entry, "=")
			env.add(key, value)
			if !hasValue {
				env.bare[key] = true
			}
		}
		return env, nil
	case []string:
		items := make([]any, len(typed))
		for i, s := range typed {
			items[i] = s
		}
		return ParseEnvironment(items)
	default:
		return nil, fmt.Errorf("environment must be a mapping or a list, got %T", block)
	}
}

func (e *Environment) add(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Set overwrites or appends key.
func (e *Environment) Set(key, value string) {
	e.add(key, value)
	delete(e.raw, key)
	delete(e.bare, key)
}

// Get returns the normalized value for key.
func (e *Environment) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Len reports the number of entries.
func (e *Environment) Len() int {
	return len(e.keys)
}

// Keys returns keys in first-seen order.
func (e *Environment) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Map returns a copy of the normalized key/value pairs.
func (e *Environment) Map() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// List renders `KEY=value` entries. Entries that were bare in the input and
// were not overwritten stay bare.
func (e *Environment) List() []any {
	out := make([]any, 0, len(e.keys))
	for _, key := range e.keys {
		if e.bare[key] {
			out = append(out, key)
			continue
		}
		out = append(out, key+"="+e.values[key])
	}
	return out
}

// Mapping renders `KEY: value` entries. Untouched entries keep their original
// value; injected ones are strings.
func (e *Environment) Mapping() map[string]any {
	out := make(map[string]any, len(e.keys))
	for _, key := range e.keys {
		if raw, ok := e.raw[key]; ok {
			out[key] = raw
			continue
		}
		out[key] = e.values[key]
	}
	return out
}

// Block renders the environment in its original form.
func (e *Environment) Block() any {
	if e.Form == FormList {
		return e.List()
	}
	return e.Mapping()
}

func scalarString(val any) string {
	switch typed := val.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
