package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable pointing at an optional YAML config file.
const ConfigFileEnv = "CONFIG_FILE"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the struct behind target from the YAML file named by CONFIG_FILE
// (when set) and then applies environment overrides. Keys come from `env` struct tags,
// or PARENT_CHILD names derived from field names when no tag is present.
func LoadConfig(target interface{}) error {
	if target == nil {
		return errors.New("config: target is nil")
	}

	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be pointer to struct")
	}

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := LoadFile(path, target); err != nil {
			return err
		}
	}

	return populateFromEnv(val.Elem(), "")
}

// LoadFile decodes a YAML document into target. Unknown keys are rejected so typos
// in deployment files surface at startup.
func LoadFile(path string, target interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("config: decode yaml %s: %w", path, err)
	}
	return nil
}

func populateFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if fieldType.Anonymous {
			if err := populateFromEnv(fieldVal, prefix); err != nil {
				return err
			}
			continue
		}

		rawKey := fieldType.Tag.Get("env")
		if rawKey == "-" {
			continue
		}

		envKey := normalizeKey(prefix, fieldType.Name)
		if rawKey != "" {
			envKey = normalizeKey("", rawKey)
		}

		if fieldVal.Kind() == reflect.Struct && fieldVal.Type() != durationType {
			if err := populateFromEnv(fieldVal, envKey); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		if err := assign(fieldVal, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("config: parse %s: %w", envKey, err)
		}
	}
	return nil
}

func normalizeKey(prefix, key string) string {
	key = strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func assign(field reflect.Value, value string) error {
	if field.Type() == durationType {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(parsed))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(parsed)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type().String())
		}
		parts := strings.Split(value, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p).Convert(field.Type().Elem()))
			}
		}
		field.Set(out)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type().String())
	}
	return nil
}
