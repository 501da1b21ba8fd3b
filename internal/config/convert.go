package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// overlay copies decoded values onto defaults only for keys present in the
// file. The first conversion error is kept in err.
type overlay struct {
	meta toml.MetaData
	err  error
}

func (o *overlay) defined(key ...string) bool {
	return o.meta.IsDefined(key...)
}

func (o *overlay) setString(dst *string, v string, key ...string) {
	if o.defined(key...) {
		*dst = strings.TrimSpace(v)
	}
}

func (o *overlay) setInt(dst *int, v int, key ...string) {
	if o.defined(key...) {
		*dst = v
	}
}

func (o *overlay) setFloat(dst *float64, v float64, key ...string) {
	if o.defined(key...) {
		*dst = v
	}
}

func (o *overlay) setBool(dst *bool, v bool, key ...string) {
	if o.defined(key...) {
		*dst = v
	}
}

func (o *overlay) setDuration(dst *time.Duration, v string, key ...string) {
	if !o.defined(key...) {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		if o.err == nil {
			o.err = fmt.Errorf("%w: parse %s: %v", ErrInvalid, strings.Join(key, "."), err)
		}
		return
	}
	*dst = d
}
