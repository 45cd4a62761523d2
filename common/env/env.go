package env

import (
	"os"
	"strconv"
	"strings"
)

func Bool(env string, defaultValue bool) bool {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	return strings.ToLower(os.Getenv(env)) == "true"
}

func Int(env string, defaultValue int) int {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(os.Getenv(env))
	if err != nil {
		return defaultValue
	}
	return num
}

func Float64(env string, defaultValue float64) float64 {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	num, err := strconv.ParseFloat(os.Getenv(env), 64)
	if err != nil {
		return defaultValue
	}
	return num
}

func String(env string, defaultValue string) string {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	return os.Getenv(env)
}

// offWords are the values that switch a Toggle off. Anything else keeps it on.
var offWords = map[string]bool{
	"false": true,
	"0":     true,
	"no":    true,
}

// IsOff reports whether value is one of the disable words (case-insensitive).
// Padded values such as " no " are not disable words.
func IsOff(value string) bool {
	return offWords[strings.ToLower(value)]
}

// Toggle reads an on-by-default switch. Unset or any value other than
// false/0/no leaves it enabled.
func Toggle(env string) bool {
	value, ok := os.LookupEnv(env)
	if !ok {
		return true
	}
	return !IsOff(value)
}
