package token

import "strings"

const bearerPrefix = "Bearer "

// FromAuthorizationHeader extracts the raw token from an Authorization header
// value. Only the case-sensitive "Bearer " scheme is recognized; anything
// else yields ok=false. A header of exactly "Bearer " yields the empty token
// with ok=true — callers treat it like any other credential and let
// verification reject it.
func FromAuthorizationHeader(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}
