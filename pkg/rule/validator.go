// Package rule 提供配置结构体的校验工具，基于 go-playground/validator.
package rule

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator 返回复用的校验器，tag 使用 `rule`.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.SetTagName("rule")
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}

			return name
		})
	})

	return validate
}

// ValidateStruct 校验任意配置结构体，返回聚合的错误信息.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("validate: %s", strings.Join(msgs, "; "))
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,max=255").
func ValidateVar(field any, tag string) error {
	if err := getValidator().Var(field, tag); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}
