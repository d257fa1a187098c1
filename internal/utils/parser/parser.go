package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Query binds the query string into a new T using `form` tags. Fiber's own
// QueryParser looks for `query` tags, and our request types share their tags
// with the JSON body parser.
func Query[T any](c *fiber.Ctx) (T, error) {
	var out T
	val := reflect.ValueOf(&out).Elem()
	if val.Kind() != reflect.Struct {
		return out, fmt.Errorf("query target must be a struct, got %s", val.Kind())
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			continue
		}
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		if err := set(val.Field(i), raw); err != nil {
			return out, fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return out, nil
}

func set(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		field = field.Elem()
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		// comma separated: formats=markdown,html
		var items []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
