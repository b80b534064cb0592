package server

import (
	"strconv"
	"strings"

	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalStatus(value string) (*partnerdomain.Status, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, nil
	}
	status := partnerdomain.Status(trimmed)
	if !status.Valid() {
		return nil, partnerdomain.ErrInvalidStatus
	}
	return &status, nil
}
