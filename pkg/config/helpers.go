package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetValue sets a setting by its YAML key. Durations use time.ParseDuration
// syntax and booleans strconv.ParseBool syntax.
func (c *Config) SetValue(key, value string) error {
	field, ok := c.settingField(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	switch {
	case field.Type() == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.SetBool(b)
	case field.Kind() == reflect.String:
		field.SetString(value)
	default:
		return fmt.Errorf("unsupported configuration key: %s", key)
	}
	return nil
}

// GetValue returns a setting by its YAML key, formatted as ToMap does.
func (c *Config) GetValue(key string) (string, error) {
	field, ok := c.settingField(key)
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return formatValue(field), nil
}

// ToMap returns every setting keyed by its YAML name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	v := reflect.ValueOf(&c.Settings).Elem()
	for i := 0; i < v.NumField(); i++ {
		if key := yamlKey(v.Type().Field(i)); key != "" {
			result[key] = formatValue(v.Field(i))
		}
	}
	return result
}

// Keys returns the YAML keys of all settings in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Config) settingField(key string) (reflect.Value, bool) {
	v := reflect.ValueOf(&c.Settings).Elem()
	for i := 0; i < v.NumField(); i++ {
		if yamlKey(v.Type().Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func yamlKey(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func formatValue(v reflect.Value) string {
	if v.Type() == reflect.TypeOf(time.Duration(0)) {
		return time.Duration(v.Int()).String()
	}
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
