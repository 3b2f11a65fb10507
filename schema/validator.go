// Package subscriptionschema validates source-subscription payloads before
// they touch the database, from both the CLI and the HTTP API.
package subscriptionschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed source_subscription.schema.json
var sourceSubscriptionSchemaJSON string

// SourceSubscription is a validated subscription request. Weight is the
// tri-state preference name (prefer, neutral, deprioritize); storage maps it
// to an integer.
type SourceSubscription struct {
	Tenant  string  `json:"tenant"`
	FeedURL string  `json:"feed_url"`
	Title   *string `json:"title,omitempty"`
	SiteURL *string `json:"site_url,omitempty"`
	Weight  *string `json:"weight,omitempty"`
	Folder  *string `json:"folder,omitempty"`
	Muted   *bool   `json:"muted,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateSourceSubscription checks a raw payload against the JSON schema and
// the semantic rules, returning the decoded subscription on success.
func ValidateSourceSubscription(payload json.RawMessage) (*SourceSubscription, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var sub SourceSubscription
	if err := json.Unmarshal(normalized, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("source_subscription.schema.json", strings.NewReader(sourceSubscriptionSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("source_subscription.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(sub *SourceSubscription) error {
	if sub == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(sub.Tenant) == "" {
		return fmt.Errorf("tenant must not be empty")
	}

	feedURL := strings.TrimSpace(sub.FeedURL)
	parsed, err := url.ParseRequestURI(feedURL)
	if err != nil {
		return fmt.Errorf("feed_url is not a valid URI: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("feed_url must use http or https, got %q", parsed.Scheme)
	}

	if sub.SiteURL != nil {
		if _, err := url.ParseRequestURI(strings.TrimSpace(*sub.SiteURL)); err != nil {
			return fmt.Errorf("site_url is not a valid URI: %w", err)
		}
	}

	return nil
}
