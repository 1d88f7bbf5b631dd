// Package auth resolves API keys into client identities and roles.
package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	// RoleChatUser may ask questions and manage conversations.
	RoleChatUser = "chat_user"
	// RoleHistoryReader may only read conversations and messages.
	RoleHistoryReader = "history_reader"
)

var knownRoles = []string{RoleChatUser, RoleHistoryReader}

type Identity struct {
	ClientID string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

func (i Identity) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, i.HasRole)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator holds keys configured as a comma separated list of
// key:client:role|role entries.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(raw string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		key, identity, err := parseKeyEntry(entry)
		if err != nil {
			return nil, err
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("static key for client %q is configured twice", identity.ClientID)
		}
		validator.keys[key] = identity
	}
	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

func parseKeyEntry(entry string) (string, Identity, error) {
	parts := strings.Split(strings.TrimSpace(entry), ":")
	if len(parts) != 3 {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: expected key:client:role|role", entry)
	}
	key := strings.TrimSpace(parts[0])
	client := strings.TrimSpace(parts[1])
	if key == "" || client == "" {
		return "", Identity{}, fmt.Errorf("invalid static key entry for client %q: empty key or client", client)
	}

	var roles []string
	for _, role := range strings.Split(parts[2], "|") {
		role = strings.TrimSpace(role)
		if role == "" || slices.Contains(roles, role) {
			continue
		}
		if !slices.Contains(knownRoles, role) {
			return "", Identity{}, fmt.Errorf("static key for client %q has unknown role %q", client, role)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return "", Identity{}, fmt.Errorf("static key for client %q needs at least one role", client)
	}
	slices.Sort(roles)
	return key, Identity{ClientID: client, Roles: roles}, nil
}
