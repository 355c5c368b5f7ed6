// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// validate is shared by every request type. Custom tags are registered in
// init().
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what clients sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("lyphtype", func(fl validator.FieldLevel) bool {
		_, err := graph.ParseLyphType(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("loctype", func(fl validator.FieldLevel) bool {
		_, err := graph.ParseLocType(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("tpltype", func(fl validator.FieldLevel) bool {
		_, err := graph.ParseTemplateType(fl.Field().String())
		return err == nil
	})
}

// Validate checks a request struct against its validate tags. Every failing
// field is reported in one invalid-input error.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return lypherr.Wrap(err, lypherr.CodeGraphInputInvalid, "invalid request")
	}

	fields := make([]string, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		msgs = append(msgs, describe(fe))
	}
	return lypherr.New(lypherr.CodeGraphInputInvalid,
		"invalid request: "+strings.Join(msgs, "; "),
		lypherr.Field("fields", fields))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required"
	case "lyphtype":
		return fmt.Sprintf("%s: %q is not a lyph type (advective, diffusive, nif)", fe.Field(), fe.Value())
	case "loctype":
		return fmt.Sprintf("%s: %q is not a location type (interior, border)", fe.Field(), fe.Value())
	case "tpltype":
		return fmt.Sprintf("%s: %q is not a lyphplate type (basic, shell, mix)", fe.Field(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
