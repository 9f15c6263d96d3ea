// Package features holds the value types shared by the texture feature
// families and the flat result row handed to reporting code.
package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Family identifies a feature family
type Family int

const (
	GLCM Family = iota
	GLSZM
	GLDZM
	NGTDM
)

var familyNames = [...]string{
	GLCM:  "GLCM",
	GLSZM: "GLSZM",
	GLDZM: "GLDZM",
	NGTDM: "NGTDM",
}

func (f Family) String() string {
	if int(f) >= 0 && int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Families returns every family in reporting order
func Families() []Family {
	return []Family{GLCM, GLSZM, GLDZM, NGTDM}
}

// ParseFamily converts a family name into a Family, ignoring case
func ParseFamily(s string) (Family, error) {
	s = strings.TrimSpace(s)
	for i, name := range familyNames {
		if strings.EqualFold(name, s) {
			return Family(i), nil
		}
	}
	return GLCM, fmt.Errorf("unknown feature family %q", s)
}

// Value is a feature result that is either a number or explicitly undefined
type Value struct {
	V       float64
	Defined bool
}

// Of wraps a number. NaN and infinities become Undefined.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Value{V: v, Defined: true}
}

// Undefined returns the explicit undefined marker
func Undefined() Value {
	return Value{}
}

func (v Value) String() string {
	if !v.Defined {
		return "NA"
	}
	return fmt.Sprintf("%g", v.V)
}

// Key builds the flat familyName_featureName identifier
func Key(f Family, feature string) string {
	return f.String() + "_" + feature
}

// Row is the result of one extraction keyed by familyName_featureName
type Row map[string]Value

// Merge copies every entry of o into r
func (r Row) Merge(o Row) {
	for k, v := range o {
		r[k] = v
	}
}

// Keys returns the row keys in sorted order
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
