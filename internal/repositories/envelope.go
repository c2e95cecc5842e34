package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"

	"requirement-analyzer/internal/models"
)

// Each list endpoint has one canonical key. The list is accepted at
// data.<key>, at <key>, or as a bare array body; anything else is a backend
// defect reported as ErrUnexpectedEnvelope.
const (
	keyUploads   = "uploads"
	keyEpics     = "epics"
	keyStories   = "stories"
	keyQATests   = "qa_tests"
	keyTestPlans = "test_plans"
	keyResults   = "search_results"
)

// envelopeLevel returns the JSON object that directly holds key
func envelopeLevel(body []byte, key string) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedEnvelope, err)
	}

	if raw, ok := top["data"]; ok {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(raw, &data); err == nil {
			if _, ok := data[key]; ok {
				return data, nil
			}
		}
	}

	if _, ok := top[key]; ok {
		return top, nil
	}

	return nil, fmt.Errorf("%w: no %q in response", ErrUnexpectedEnvelope, key)
}

// decodeList normalizes a list response for the endpoint's canonical key
func decodeList[T any](body []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedEnvelope, err)
		}
		return items, nil
	}

	level, err := envelopeLevel(trimmed, key)
	if err != nil {
		return nil, err
	}
	return decodeItems[T](level[key], key)
}

// decodePage normalizes a paginated listing. Totals are read next to the
// list as total_<key> and total_pages.
func decodePage[T any](body []byte, key string) (models.Page[T], error) {
	var page models.Page[T]

	level, err := envelopeLevel(bytes.TrimSpace(body), key)
	if err != nil {
		return page, err
	}

	items, err := decodeItems[T](level[key], key)
	if err != nil {
		return page, err
	}
	page.Items = items

	page.Total = len(items)
	if raw, ok := level["total_"+key]; ok {
		if err := json.Unmarshal(raw, &page.Total); err != nil {
			return page, fmt.Errorf("%w: total_%s is not a number: %v", ErrUnexpectedEnvelope, key, err)
		}
	}
	if raw, ok := level["total_pages"]; ok {
		if err := json.Unmarshal(raw, &page.TotalPages); err != nil {
			return page, fmt.Errorf("%w: total_pages is not a number: %v", ErrUnexpectedEnvelope, err)
		}
	}

	return page, nil
}

func decodeItems[T any](raw json.RawMessage, key string) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q is not a list of the expected shape: %v", ErrUnexpectedEnvelope, key, err)
	}
	return items, nil
}
