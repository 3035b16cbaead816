package settings

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed push_subscription.schema.json
var pushSubscriptionSchema []byte

var compiledPushSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(pushSubscriptionSchema)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded push subscription schema: %v", err))
	}
	compiledPushSchema = schema
}

// ValidatePushSubscription validates a raw subscription blob posted by a
// client against the embedded JSON Schema.
func ValidatePushSubscription(blob map[string]interface{}) error {
	result := compiledPushSchema.Validate(blob)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		return fmt.Errorf("subscription validation failed: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}
