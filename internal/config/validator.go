// internal/config/validator.go
//
// Struct-tag validation for the merged Config.
//
// Context
// -------
// `loader.go` calls `validateStruct` right after unmarshalling the koanf
// tree.  Any failure aborts startup.  Failures are reported together and
// by the dotted koanf key an operator would edit (for example
// `database.default_engine`), not by Go field name.
//
// Rules in use: `required`, `hostname_port`, `hostname_rfc1123` on every
// base domain, `oneof` for the engine family and log level, and
// `required_unless` so a file-engine deployment may omit the network
// default host.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}()

// validateStruct returns nil or one error listing every failed key.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest // drop the root type name
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s fails %s", key, rule))
	}
	return errors.New("invalid " + strings.Join(msgs, "; "))
}
