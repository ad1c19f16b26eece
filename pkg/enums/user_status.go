package enums

import (
	"fmt"
	"strings"
)

// UserStatus marks whether a user may hold a session.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

func (s UserStatus) String() string {
	return string(s)
}

func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusBanned
}

// Normalize maps a missing status onto active.
func (s UserStatus) Normalize() UserStatus {
	if s == "" {
		return UserStatusActive
	}
	return s
}

func ParseUserStatus(value string) (UserStatus, error) {
	switch UserStatus(strings.ToLower(strings.TrimSpace(value))) {
	case UserStatusActive:
		return UserStatusActive, nil
	case UserStatusBanned:
		return UserStatusBanned, nil
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
