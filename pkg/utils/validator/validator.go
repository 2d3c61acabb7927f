// Package validator 基于 go-playground/validator 提供结构体校验与中英文错误消息。
// Validator 同时实现 gin 的 binding.StructValidator, 可直接替换 gin 默认校验器。
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// TagName 结构体校验使用的标签名。
const TagName = "binding"

// Validator wraps validator.Validate with translators.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
}

var (
	globalMu sync.RWMutex
	global   *Validator
	once     sync.Once
)

// New creates a validator with en/zh translations and custom rules registered.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		trans:    make(map[string]ut.Translator, 2),
	}
	v.validate.SetTagName(TagName)

	// 错误中的字段名使用 json 标签, 与请求体保持一致
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	if t, ok := v.uni.GetTranslator(LangEN); ok {
		_ = entrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangEN] = t
	}
	if t, ok := v.uni.GetTranslator(LangZH); ok {
		_ = zhtrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangZH] = t
	}

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// Global returns the process-wide validator.
func Global() *Validator {
	once.Do(func() {
		globalMu.Lock()
		if global == nil {
			global = New()
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobal replaces the process-wide validator.
func SetGlobal(v *Validator) {
	once.Do(func() {})
	globalMu.Lock()
	defer globalMu.Unlock()
	global = v
}

// GetTranslator returns the translator for lang, or nil if unsupported.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	return v.trans[lang]
}

// Validate validates a struct and returns English messages.
func (v *Validator) Validate(obj interface{}) error {
	if errs := v.ValidateWithLang(obj, LangEN); errs != nil {
		return errs
	}
	return nil
}

// ValidateWithLang validates a struct and returns *ValidationErrors, or nil when valid.
// 不支持的语言回退为英文。
func (v *Validator) ValidateWithLang(obj interface{}, lang string) *ValidationErrors {
	return v.translate(v.validate.Struct(obj), lang)
}

// ValidateVarWithLang validates a single variable against tag.
func (v *Validator) ValidateVarWithLang(field interface{}, tag, lang string) *ValidationErrors {
	return v.translate(v.validate.Var(field, tag), lang)
}

// ValidateStruct implements gin binding.StructValidator.
func (v *Validator) ValidateStruct(obj interface{}) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return v.Validate(obj)
}

// Engine implements gin binding.StructValidator.
func (v *Validator) Engine() interface{} {
	return v.validate
}

func (v *Validator) translate(err error, lang string) *ValidationErrors {
	if err == nil {
		return nil
	}

	trans := v.trans[lang]
	if trans == nil {
		trans = v.trans[LangEN]
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{Errors: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationErrors{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: msg,
		})
	}
	return out
}

// Struct validates obj with the global validator.
func Struct(obj interface{}) error {
	return Global().Validate(obj)
}

// StructWithLang validates obj with the global validator.
func StructWithLang(obj interface{}, lang string) *ValidationErrors {
	return Global().ValidateWithLang(obj, lang)
}
