package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ParseJWTClaims decodes the claims segment of a JWT without verifying the
// signature. The harness only inspects token structure and claims; verifying
// signatures is the job of the service under test, not of a test client.
func ParseJWTClaims(token string) (ldvalue.Value, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ldvalue.Null(), fmt.Errorf("token has %d segments, want 3", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return ldvalue.Null(), fmt.Errorf("decoding claims segment: %w", err)
	}
	var claims ldvalue.Value
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ldvalue.Null(), fmt.Errorf("claims segment is not valid JSON: %w", err)
	}
	if claims.Type() != ldvalue.ObjectType {
		return ldvalue.Null(), fmt.Errorf("claims segment is not a JSON object")
	}
	return claims, nil
}
