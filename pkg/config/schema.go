package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	gkerrors "github.com/canonical/discourse-gatekeeper/internal/errors"
)

//go:embed schema.json
var configSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(configSchema)

// Validate checks an assembled Config against the configuration schema,
// catching a category_id left at its zero value or a credential field
// reduced to blank by a missing environment variable before either reaches
// the Discourse client.
func Validate(cfg *Config) error {
	configData, err := json.Marshal(cfg)
	if err != nil {
		return gkerrors.WrapInput("failed to encode configuration for validation", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(configData))
	if err != nil {
		return gkerrors.WrapInput("schema validation error", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return gkerrors.NewInput(fmt.Sprintf("configuration validation failed:\n%s", strings.Join(msgs, "\n")))
	}
	return nil
}
