package handlers

import (
	"strconv"
	"strings"

	"github.com/Freeeeeet/planbot/internal/model"
)

// ParseArgs делит строку аргументов по пробелам с учётом кавычек и экранирования
func ParseArgs(args string) ([]string, error) {
	var result []string
	var current strings.Builder
	var quote rune
	escaped := false
	started := false

	for _, ch := range args {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}

		switch {
		case ch == '\\':
			escaped = true
			started = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '\'' || ch == '"'):
			quote = ch
			started = true
		case quote == 0 && (ch == ' ' || ch == '\t' || ch == '\n'):
			if started {
				result = append(result, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(ch)
			started = true
		}
	}

	if quote != 0 {
		return nil, model.Errorf(model.ErrInvalidValue, "Unterminated quote in arguments")
	}
	if escaped {
		current.WriteRune('\\')
	}
	if started {
		result = append(result, current.String())
	}
	return result, nil
}

// Options - аргументы вида key=value
type Options map[string]string

// SplitOptions отделяет позиционные аргументы от key=value
func SplitOptions(args []string) ([]string, Options, error) {
	positional := make([]string, 0, len(args))
	opts := make(Options)

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			positional = append(positional, arg)
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, nil, model.Errorf(model.ErrInvalidValue, "Missing option name in %q", arg)
		}
		if _, dup := opts[key]; dup {
			return nil, nil, model.Errorf(model.ErrInvalidValue, "Option %s is given twice", key)
		}
		opts[key] = value
	}
	return positional, opts, nil
}

// Allow проверяет, что переданы только известные опции
func (o Options) Allow(keys ...string) error {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	for k := range o {
		if _, ok := allowed[k]; !ok {
			return model.Errorf(model.ErrInvalidValue, "Unknown option %q", k)
		}
	}
	return nil
}

// Require возвращает обязательную опцию
func (o Options) Require(key string) (string, error) {
	v, ok := o[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", model.Errorf(model.ErrInvalidValue, "Option %s is required", key)
	}
	return v, nil
}

// Day разбирает день недели из опции
func (o Options) Day(key string) (model.Weekday, error) {
	v, err := o.Require(key)
	if err != nil {
		return 0, err
	}
	return model.ParseWeekday(v)
}

// Clock разбирает время HH:MM из опции
func (o Options) Clock(key string) (model.ClockTime, error) {
	v, err := o.Require(key)
	if err != nil {
		return 0, err
	}
	return model.ParseClock(v)
}

// Int разбирает целое число из опции
func (o Options) Int(key string) (int64, error) {
	v, err := o.Require(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, model.Errorf(model.ErrInvalidValue, "Option %s must be a number", key)
	}
	return n, nil
}

// PlanName возвращает единственный позиционный аргумент - имя плана
func PlanName(positional []string) (string, error) {
	switch len(positional) {
	case 0:
		return "", model.Errorf(model.ErrInvalidPlanName, "Plan name is required")
	case 1:
		return positional[0], nil
	default:
		return "", model.Errorf(model.ErrInvalidPlanName, "Plan name must be a single argument, use quotes for spaces")
	}
}
