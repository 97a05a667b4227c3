package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMethod is returned when a method name matches no strategy.
var ErrUnknownMethod = errors.New("unknown repair method")

// Method selects a repair strategy.
type Method string

const (
	Blur      Method = "blur"
	Pixelate  Method = "pixelate"
	Median    Method = "median"
	CloneLeft Method = "clone_left"
	CloneTop  Method = "clone_top"
)

// Methods lists every strategy in a stable order.
func Methods() []Method {
	return []Method{Blur, Pixelate, Median, CloneLeft, CloneTop}
}

// ParseMethod accepts wire names ("clone_left"), Go-style names ("CloneLeft")
// and hyphenated forms ("clone-left"), case-insensitively.
func ParseMethod(name string) (Method, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	switch key {
	case "blur":
		return Blur, nil
	case "pixelate":
		return Pixelate, nil
	case "median":
		return Median, nil
	case "cloneleft":
		return CloneLeft, nil
	case "clonetop":
		return CloneTop, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

func (m Method) String() string { return string(m) }

// Valid reports whether m names a known strategy.
func (m Method) Valid() bool {
	switch m {
	case Blur, Pixelate, Median, CloneLeft, CloneTop:
		return true
	}
	return false
}

// UnmarshalJSON parses method names leniently, like ParseMethod.
func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Params tunes a repair pass.
type Params struct {
	// Strength is the Gaussian radius, pixelation block size or median
	// window. Values below 1 are treated as 1.
	Strength int `json:"strength"`

	// Feather is the blur radius of the blend mask; 0 gives hard edges.
	// Negative values are treated as 0.
	Feather int `json:"feather"`
}

// DefaultStrength is the blur radius the tool layer applies when the caller
// gives none.
const DefaultStrength = 6

// DefaultParams returns the parameters used when a caller supplies none.
func DefaultParams() Params {
	return Params{Strength: DefaultStrength, Feather: 0}
}

func (p Params) normalized() Params {
	if p.Strength < 1 {
		p.Strength = 1
	}
	if p.Feather < 0 {
		p.Feather = 0
	}
	return p
}
