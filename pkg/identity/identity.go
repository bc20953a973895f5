// Package identity resolves bearer credentials to a stable user identifier.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidToken = errors.New("token rejected")

// Verifier validates a bearer credential and returns the caller's user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier maps fixed tokens to user ids. Meant for tests and local runs.
type StaticVerifier map[string]string

// ParseStaticTokens parses "token:uid,token:uid".
func ParseStaticTokens(list string) (StaticVerifier, error) {
	v := StaticVerifier{}
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, uid, ok := strings.Cut(pair, ":")
		if !ok || token == "" || uid == "" {
			return nil, fmt.Errorf("invalid static token entry %q", pair)
		}
		v[token] = uid
	}
	if len(v) == 0 {
		return nil, errors.New("no static tokens configured")
	}
	return v, nil
}

func (v StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	uid, ok := v[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return uid, nil
}
