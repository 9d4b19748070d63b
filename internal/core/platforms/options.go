package platforms

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Per-platform JSON schemas for the platform-specific `option` blob on a
// publish payload. Validated once at submission so a bad option set fails
// the whole batch up front instead of one worker call at a time.
var optionSchemas = map[Platform]string{
	PlatformYouTube: `{
		"type": "object",
		"properties": {
			"privacyStatus": {"type": "string", "enum": ["public", "unlisted", "private"]},
			"categoryId": {"type": "string"},
			"madeForKids": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
	PlatformTikTok: `{
		"type": "object",
		"properties": {
			"privacyLevel": {"type": "string", "enum": ["PUBLIC_TO_EVERYONE", "MUTUAL_FOLLOW_FRIENDS", "SELF_ONLY"]},
			"disableComment": {"type": "boolean"},
			"disableDuet": {"type": "boolean"},
			"disableStitch": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
	PlatformFacebook: `{
		"type": "object",
		"properties": {
			"pageId": {"type": "string"},
			"published": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
	PlatformThreads: `{
		"type": "object",
		"properties": {
			"replyControl": {"type": "string", "enum": ["everyone", "accounts_you_follow", "mentioned_only"]}
		},
		"additionalProperties": false
	}`,
	PlatformWeChat: `{
		"type": "object",
		"properties": {
			"needOpenComment": {"type": "boolean"},
			"onlyFansCanComment": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
	PlatformBilibili: `{
		"type": "object",
		"properties": {
			"tid": {"type": "integer"},
			"copyright": {"type": "integer", "enum": [1, 2]},
			"source": {"type": "string"}
		},
		"additionalProperties": false
	}`,
}

// decodeOptions unmarshals the option blob into an adapter's typed options
// struct. Absent options leave the struct's defaults untouched. Adapters
// call this at publish time on payloads that already passed ValidateOptions
// at submission; a decode failure here still surfaces as ErrInvalidOptions
// rather than a panic, since jobs can outlive a schema change.
func decodeOptions(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// ValidateOptions checks the payload's platform-specific options against
// the platform's schema. An absent option blob is always valid; a platform
// without a schema accepts anything.
func ValidateOptions(p Platform, payload *PublishPayload) error {
	if len(payload.Options) == 0 {
		return nil
	}
	schema, ok := optionSchemas[p]
	if !ok {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(payload.Options),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w for %s: %s", ErrInvalidOptions, p, result.Errors()[0].String())
	}
	return nil
}
