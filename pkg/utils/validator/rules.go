package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank     = "notblank"     // 去除首尾空白后非空
	TagNoWhitespace = "nowhitespace" // No whitespace characters
	TagDocID        = "docid"        // 文档 ID: 可打印字符, 无空白, 不超过 MaxDocIDLength 字节
)

// MaxDocIDLength 文档 ID 的最大字节数。
const MaxDocIDLength = 64

// registerCustomRules registers all custom validation rules.
func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
	_ = v.validate.RegisterValidation(TagDocID, validateDocID)
}

// validateNotBlank rejects empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateNoWhitespace validates that string contains no whitespace.
func validateNoWhitespace(fl validator.FieldLevel) bool {
	for _, char := range fl.Field().String() {
		if unicode.IsSpace(char) {
			return false
		}
	}
	return true
}

// validateDocID 空值交给 required/omitempty 处理。
func validateDocID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if len(value) > MaxDocIDLength || !utf8.ValidString(value) {
		return false
	}
	for _, char := range value {
		if unicode.IsSpace(char) || !unicode.IsPrint(char) {
			return false
		}
	}
	return true
}
