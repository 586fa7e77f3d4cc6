// Package format holds display helpers for personal data.
package format

import (
	"strings"

	"github.com/dtroode/dirsync/internal/model"
)

const maskSuffix = "***"

// MaskEmail hides most of the local part of an address and keeps the domain.
// Local parts of up to three characters keep their first character, longer
// ones keep three.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, found := strings.Cut(email, "@")
	masked := maskLocal(local)
	if !found {
		return masked
	}
	return masked + "@" + domain
}

func maskLocal(local string) string {
	runes := []rune(local)
	switch {
	case len(runes) == 0:
		return maskSuffix
	case len(runes) <= 3:
		return string(runes[:1]) + maskSuffix
	default:
		return string(runes[:3]) + maskSuffix
	}
}

// MaskMobile keeps the last four digits of a phone number.
func MaskMobile(mobile string) string {
	runes := []rune(mobile)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// MaskID masks identifiers that are personal data. Opaque directory ids are
// returned unchanged.
func MaskID(id string, idType model.IDType) string {
	switch idType {
	case model.IDTypeEmail:
		return MaskEmail(id)
	case model.IDTypeMobile:
		return MaskMobile(id)
	default:
		return id
	}
}
