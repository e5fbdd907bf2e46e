package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a gateway body is not decodable JSON.
var ErrMalformedResponse = errors.New("malformed gateway response")

// instanceListed probes the registry response shapes in order: a bare array, an object
// with an "instances" array, then an object keyed by instance name.
func instanceListed(body []byte, instance string) (bool, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch v := root.(type) {
	case []any:
		return listContains(v, instance), nil
	case map[string]any:
		if list, ok := v["instances"].([]any); ok && listContains(list, instance) {
			return true, nil
		}
		_, ok := v[instance]
		return ok, nil
	}
	return false, nil
}

func listContains(list []any, instance string) bool {
	for _, item := range list {
		if entryName(item) == instance {
			return true
		}
	}
	return false
}

// entryName extracts the instance name from a name string or an object carrying
// name, instanceName or instance.instanceName.
func entryName(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["name"].(string); ok {
			return s
		}
		if s, ok := v["instanceName"].(string); ok {
			return s
		}
		if nested, ok := v["instance"].(map[string]any); ok {
			if s, ok := nested["instanceName"].(string); ok {
				return s
			}
			if s, ok := nested["name"].(string); ok {
				return s
			}
		}
	}
	return ""
}

// connectionState reads the state from "state", "instance.state" or
// "connection.state", whichever is present first.
func connectionState(body []byte) (string, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return "", nil
	}
	if s, ok := obj["state"].(string); ok {
		return s, nil
	}
	for _, key := range []string{"instance", "connection"} {
		if nested, ok := obj[key].(map[string]any); ok {
			if s, ok := nested["state"].(string); ok {
				return s, nil
			}
		}
	}
	return "", nil
}
