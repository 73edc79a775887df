package storage

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/pixil98/go-errors"
)

const assetVersion = 1

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9-]*$`)

type ValidatingSpec interface {
	Validate() error
}

type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Asset is the envelope every backend persists a record in.
type Asset[T ValidatingSpec] struct {
	Version    uint       `json:"version"`
	Identifier Identifier `json:"id"`
	Spec       T          `json:"spec"`
}

func (a *Asset[T]) Id() Identifier {
	return a.Identifier
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	if a.Identifier == "" {
		el.Add(fmt.Errorf("id must be set"))
	}

	if !identifierPattern.MatchString(a.Identifier.String()) {
		el.Add(fmt.Errorf("id must be alphanumeric"))
	}

	el.Add(a.Spec.Validate())

	return el.Err()
}

func validateId(id string) error {
	if id == "" {
		return fmt.Errorf("id must be set")
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("id %q must be alphanumeric", id)
	}
	return nil
}

func encodeAsset[T ValidatingSpec](id string, v T) ([]byte, error) {
	asset := &Asset[T]{
		Version:    assetVersion,
		Identifier: Identifier(id),
		Spec:       v,
	}

	jsonData, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("marshalling json: %w", err)
	}

	return jsonData, nil
}

func decodeAsset[T ValidatingSpec](id string, jsonData []byte) (T, error) {
	var zero T

	asset := &Asset[T]{}
	err := json.Unmarshal(jsonData, asset)
	if err != nil {
		return zero, fmt.Errorf("unmarshalling asset: %w", err)
	}

	err = asset.Validate()
	if err != nil {
		return zero, fmt.Errorf("validating %s: %w", id, err)
	}

	if asset.Id().String() != id {
		return zero, fmt.Errorf("asset id %q does not match %q", asset.Id(), id)
	}

	return asset.Spec, nil
}
