package rules

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ioprotolab/simhub/internal/payload"
)

var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

// matchRegex compiles and caches pattern (from want.String()) and reports
// whether field's string form matches.
func matchRegex(field, want payload.Value) bool {
	pattern := want.String()

	regexCacheMu.Lock()
	re, ok := regexCache[pattern]
	if !ok {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			regexCacheMu.Unlock()
			return false
		}
		re = compiled
		regexCache[pattern] = re
	}
	regexCacheMu.Unlock()

	return re.MatchString(field.String())
}

func strHasPrefix(field, want payload.Value) bool {
	return strings.HasPrefix(field.String(), want.String())
}

func strHasSuffix(field, want payload.Value) bool {
	return strings.HasSuffix(field.String(), want.String())
}

// between reports whether field falls within [low, high] inclusive,
// comparing numerically when both sides parse as numbers, lexically
// otherwise.
func between(field, low, high payload.Value) bool {
	if ff, ok := field.Float(); ok {
		lf, lok := low.Float()
		hf, hok := high.Float()
		if lok && hok {
			return ff >= lf && ff <= hf
		}
	}
	fs, ls, hs := field.String(), low.String(), high.String()
	return fs >= ls && fs <= hs
}
