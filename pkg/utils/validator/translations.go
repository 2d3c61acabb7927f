package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// customMessages 自定义规则的消息模板, {0} 为字段名。
var customMessages = map[string]map[string]string{
	LangEN: {
		TagNotBlank:     "{0} cannot be empty",
		TagNoWhitespace: "{0} must not contain whitespace characters",
		TagDocID:        "{0} must be at most 64 printable characters without whitespace",
	},
	LangZH: {
		TagNotBlank:     "{0}不能为空",
		TagNoWhitespace: "{0}不能包含空白字符",
		TagDocID:        "{0}必须是不超过64个字符且不含空白的可打印字符串",
	},
}

func (v *Validator) registerCustomTranslations() {
	for lang, messages := range customMessages {
		for tag, msg := range messages {
			v.RegisterTranslation(lang, tag, msg)
		}
	}
}

// RegisterTranslation 覆盖 lang 下 tag 的消息模板, 不支持的语言被忽略。
func (v *Validator) RegisterTranslation(lang, tag, message string) {
	trans := v.GetTranslator(lang)
	if trans == nil {
		return
	}
	_ = v.validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, message, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}
