package storage

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"

	"nqs/internal/errors"
)

var (
	registerOnce sync.Once
	registerErr  error

	// pattern -> *regexp.Regexp, or nil when the pattern does not compile
	regexpCache sync.Map
)

// registerFunctions installs the REGEXP scalar function used by "x REGEXP ?".
// modernc registers functions process-wide, so this runs once.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("regexp", 2, sqlRegexp)
		if registerErr != nil {
			registerErr = fmt.Errorf("failed to register REGEXP: %w", registerErr)
		}
	})
	return registerErr
}

// sqlRegexp implements regexp(pattern, value). Matching is unanchored and
// case-insensitive. A pattern that fails to compile matches nothing, so one
// bad row never aborts the statement.
func sqlRegexp(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := textArg(args[0])
	if !ok {
		return int64(0), nil
	}
	value, ok := textArg(args[1])
	if !ok {
		return int64(0), nil
	}

	re := cachedRegexp(pattern)
	if re == nil || !re.MatchString(value) {
		return int64(0), nil
	}
	return int64(1), nil
}

func textArg(v driver.Value) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func cachedRegexp(pattern string) *regexp.Regexp {
	if v, ok := regexpCache.Load(pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		regexpCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	regexpCache.Store(pattern, re)
	return re
}

// ValidatePattern compiles pattern the way REGEXP will, returning a
// PATTERN_INVALID error when it does not compile.
func ValidatePattern(pattern string) error {
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return errors.PatternError(pattern, err)
	}
	return nil
}
