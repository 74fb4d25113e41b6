// Package semrange implements npm-style semantic version ranges.
//
// A Range is normalized into a union of version intervals so that ranges from
// different sources can be intersected: two ranges are compatible exactly when
// their intersection still admits at least one version. Version ordering is
// delegated to golang.org/x/mod/semver.
//
// Supported syntax: exact and partial versions ("1.2.3", "1.2", "1", "1.x",
// "*"), primitive comparators (=, >, >=, <, <=), caret and tilde ranges,
// hyphen ranges ("1.2 - 2.3.4"), whitespace conjunction and "||" disjunction.
package semrange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a full semantic version (major.minor.patch with optional prerelease).
type Version struct {
	canonical string // "v1.2.3" or "v1.2.3-beta.1"
}

// ParseVersion parses a full semantic version. A leading "v" or "=" is accepted
// and build metadata is dropped.
func ParseVersion(s string) (Version, error) {
	p, err := parsePartial(s)
	if err != nil {
		return Version{}, err
	}
	if p.parts < 3 || p.wildcard {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	return p.version(), nil
}

// MustVersion is ParseVersion for constants; it panics on malformed input.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version without the "v" prefix.
func (v Version) String() string {
	return strings.TrimPrefix(v.canonical, "v")
}

// Compare returns -1, 0, or +1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

var zero = Version{canonical: "v0.0.0"}

func newVersion(major, minor, patch int, pre string) Version {
	c := fmt.Sprintf("v%d.%d.%d", major, minor, patch)
	if pre != "" {
		c += "-" + pre
	}
	return Version{canonical: c}
}

// bound is one end of an interval. An upper bound with !set is unbounded.
type bound struct {
	v         Version
	inclusive bool
	set       bool
}

type interval struct {
	lo bound
	hi bound
}

func (iv interval) empty() bool {
	if !iv.hi.set {
		return false
	}
	c := iv.lo.v.Compare(iv.hi.v)
	if c < 0 {
		return false
	}
	return c > 0 || !(iv.lo.inclusive && iv.hi.inclusive)
}

func (iv interval) contains(v Version) bool {
	c := v.Compare(iv.lo.v)
	if c < 0 || (c == 0 && !iv.lo.inclusive) {
		return false
	}
	if !iv.hi.set {
		return true
	}
	c = v.Compare(iv.hi.v)
	return c < 0 || (c == 0 && iv.hi.inclusive)
}

func intersectIntervals(a, b interval) interval {
	out := interval{lo: a.lo, hi: a.hi}

	switch c := a.lo.v.Compare(b.lo.v); {
	case c < 0:
		out.lo = b.lo
	case c == 0:
		out.lo.inclusive = a.lo.inclusive && b.lo.inclusive
	}

	switch {
	case !a.hi.set:
		out.hi = b.hi
	case !b.hi.set:
		out.hi = a.hi
	default:
		switch c := a.hi.v.Compare(b.hi.v); {
		case c > 0:
			out.hi = b.hi
		case c == 0:
			out.hi.inclusive = a.hi.inclusive && b.hi.inclusive
		}
	}
	return out
}

func (iv interval) String() string {
	if iv.hi.set && iv.lo.inclusive && iv.hi.inclusive && iv.lo.v.Compare(iv.hi.v) == 0 {
		return iv.lo.v.String()
	}

	var parts []string
	if !(iv.lo.inclusive && iv.lo.v.Compare(zero) == 0) {
		op := ">"
		if iv.lo.inclusive {
			op = ">="
		}
		parts = append(parts, op+iv.lo.v.String())
	}
	if iv.hi.set {
		op := "<"
		if iv.hi.inclusive {
			op = "<="
		}
		parts = append(parts, op+iv.hi.v.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func anyInterval() interval {
	return interval{lo: bound{v: zero, inclusive: true, set: true}}
}

// Range is a parsed version range.
type Range struct {
	raw string
	set []interval
}

// Any returns the range admitting every version.
func Any() Range {
	return Range{raw: "*", set: []interval{anyInterval()}}
}

// Raw returns the text the range was parsed from.
func (r Range) Raw() string {
	return r.raw
}

// IsEmpty reports whether no version satisfies the range.
func (r Range) IsEmpty() bool {
	return len(r.set) == 0
}

// Contains reports whether v satisfies the range.
func (r Range) Contains(v Version) bool {
	for _, iv := range r.set {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Intersect returns the range of versions satisfying both r and o.
func (r Range) Intersect(o Range) Range {
	var out []interval
	for _, a := range r.set {
		for _, b := range o.set {
			iv := intersectIntervals(a, b)
			if !iv.empty() {
				out = append(out, iv)
			}
		}
	}
	out = normalize(out)

	res := Range{set: out}
	res.raw = res.String()
	return res
}

// Equal reports whether both ranges admit exactly the same intervals.
func (r Range) Equal(o Range) bool {
	return r.String() == o.String()
}

// String renders the canonical form, e.g. ">=1.2.0 <2.0.0".
// An empty range renders as "<0.0.0".
func (r Range) String() string {
	if len(r.set) == 0 {
		return "<0.0.0"
	}
	parts := make([]string, len(r.set))
	for i, iv := range r.set {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " || ")
}

// normalize sorts intervals by lower bound and merges the ones that overlap
// or touch, so equal version sets always render the same way.
func normalize(set []interval) []interval {
	sort.SliceStable(set, func(i, j int) bool {
		c := set[i].lo.v.Compare(set[j].lo.v)
		if c != 0 {
			return c < 0
		}
		return set[i].lo.inclusive && !set[j].lo.inclusive
	})

	var out []interval
	for _, iv := range set {
		if len(out) == 0 {
			out = append(out, iv)
			continue
		}
		cur := &out[len(out)-1]
		if !joins(*cur, iv) {
			out = append(out, iv)
			continue
		}
		cur.hi = maxUpper(cur.hi, iv.hi)
	}
	return out
}

// joins reports whether b, which starts no earlier than a, overlaps or
// touches a.
func joins(a, b interval) bool {
	if !a.hi.set {
		return true
	}
	c := b.lo.v.Compare(a.hi.v)
	return c < 0 || (c == 0 && (a.hi.inclusive || b.lo.inclusive))
}

func maxUpper(a, b bound) bound {
	if !a.set || !b.set {
		return bound{}
	}
	switch c := a.v.Compare(b.v); {
	case c > 0:
		return a
	case c < 0:
		return b
	}
	a.inclusive = a.inclusive || b.inclusive
	return a
}

// ParseRange parses an npm-style range expression.
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	if raw == "" || raw == "latest" {
		return Range{raw: raw, set: []interval{anyInterval()}}, nil
	}

	var set []interval
	for _, alt := range strings.Split(raw, "||") {
		iv, err := parseConjunction(strings.TrimSpace(alt))
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		if !iv.empty() {
			set = append(set, iv)
		}
	}

	return Range{raw: raw, set: normalize(set)}, nil
}

// MustRange is ParseRange for constants; it panics on malformed input.
func MustRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseConjunction(s string) (interval, error) {
	if s == "" {
		return anyInterval(), nil
	}

	if lo, hi, ok := strings.Cut(s, " - "); ok {
		return parseHyphen(strings.TrimSpace(lo), strings.TrimSpace(hi))
	}

	acc := anyInterval()
	for _, tok := range comparatorTokens(s) {
		iv, err := parseComparator(tok)
		if err != nil {
			return interval{}, err
		}
		acc = intersectIntervals(acc, iv)
	}
	return acc, nil
}

// comparatorTokens splits on whitespace, gluing a bare operator to the version
// that follows it (">= 1.2.3" is one comparator).
func comparatorTokens(s string) []string {
	fields := strings.Fields(s)
	var out []string
	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		if strings.Trim(tok, "<>=^~") == "" && i+1 < len(fields) {
			tok += fields[i+1]
			i++
		}
		out = append(out, tok)
	}
	return out
}

func parseHyphen(loText, hiText string) (interval, error) {
	lo, err := parsePartial(loText)
	if err != nil {
		return interval{}, err
	}
	hi, err := parsePartial(hiText)
	if err != nil {
		return interval{}, err
	}

	iv := anyInterval()
	if !lo.wildcard || lo.parts > 0 {
		iv.lo = bound{v: lo.floor(), inclusive: true, set: true}
	}
	switch {
	case hi.parts == 0:
	case hi.parts == 3 && !hi.wildcard:
		iv.hi = bound{v: hi.version(), inclusive: true, set: true}
	default:
		iv.hi = bound{v: hi.ceiling(), set: true}
	}
	return iv, nil
}

func parseComparator(tok string) (interval, error) {
	op := ""
	for _, candidate := range []string{">=", "<=", "~>", ">", "<", "=", "^", "~"} {
		if strings.HasPrefix(tok, candidate) {
			op = candidate
			break
		}
	}
	if op == "~>" {
		op = "~"
		tok = "~" + tok[2:]
	}
	p, err := parsePartial(tok[len(op):])
	if err != nil {
		return interval{}, err
	}

	iv := anyInterval()
	full := p.parts == 3 && !p.wildcard

	switch op {
	case "", "=":
		if p.parts == 0 {
			return iv, nil
		}
		iv.lo = bound{v: p.floor(), inclusive: true, set: true}
		if full {
			iv.hi = bound{v: p.version(), inclusive: true, set: true}
		} else {
			iv.hi = bound{v: p.ceiling(), set: true}
		}
	case "^":
		if p.parts == 0 {
			return iv, nil
		}
		iv.lo = bound{v: p.floor(), inclusive: true, set: true}
		iv.hi = bound{v: p.caretCeiling(), set: true}
	case "~":
		if p.parts == 0 {
			return iv, nil
		}
		iv.lo = bound{v: p.floor(), inclusive: true, set: true}
		if p.parts >= 2 {
			iv.hi = bound{v: newVersion(p.major, p.minor+1, 0, ""), set: true}
		} else {
			iv.hi = bound{v: newVersion(p.major+1, 0, 0, ""), set: true}
		}
	case ">=":
		if p.parts > 0 {
			iv.lo = bound{v: p.floor(), inclusive: true, set: true}
		}
	case ">":
		if p.parts == 0 {
			return interval{}, fmt.Errorf("comparator %q is unsatisfiable", tok)
		}
		if full {
			iv.lo = bound{v: p.version(), set: true}
		} else {
			iv.lo = bound{v: p.ceiling(), inclusive: true, set: true}
		}
	case "<":
		if p.parts == 0 {
			return interval{}, fmt.Errorf("comparator %q is unsatisfiable", tok)
		}
		iv.hi = bound{v: p.floor(), set: true}
	case "<=":
		if p.parts == 0 {
			return iv, nil
		}
		if full {
			iv.hi = bound{v: p.version(), inclusive: true, set: true}
		} else {
			iv.hi = bound{v: p.ceiling(), set: true}
		}
	}
	return iv, nil
}

// partial is a possibly incomplete version such as "1", "1.2", or "1.x".
type partial struct {
	major, minor, patch int
	parts               int // number of concrete numeric components
	wildcard            bool
	pre                 string
}

func parsePartial(s string) (partial, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "=vV")
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	var p partial
	if s == "" || s == "*" || s == "x" || s == "X" {
		p.wildcard = true
		return p, nil
	}

	core := s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		core, p.pre = s[:i], s[i+1:]
		if p.pre == "" {
			return partial{}, fmt.Errorf("invalid version %q: empty prerelease", orig)
		}
	}

	fields := strings.Split(core, ".")
	if len(fields) > 3 {
		return partial{}, fmt.Errorf("invalid version %q: too many components", orig)
	}

	nums := [3]*int{&p.major, &p.minor, &p.patch}
	for i, f := range fields {
		if f == "x" || f == "X" || f == "*" {
			p.wildcard = true
			break
		}
		if f == "" || strings.TrimLeft(f, "0123456789") != "" {
			return partial{}, fmt.Errorf("invalid version %q: component %q is not numeric", orig, f)
		}
		if len(f) > 1 && f[0] == '0' {
			return partial{}, fmt.Errorf("invalid version %q: leading zero in %q", orig, f)
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return partial{}, fmt.Errorf("invalid version %q: %w", orig, err)
		}
		*nums[i] = n
		p.parts = i + 1
	}

	if p.pre != "" && p.parts < 3 {
		return partial{}, fmt.Errorf("invalid version %q: prerelease requires a full version", orig)
	}
	if p.parts == 3 && !semver.IsValid(p.version().canonical) {
		return partial{}, fmt.Errorf("invalid version %q", orig)
	}
	return p, nil
}

func (p partial) version() Version {
	return newVersion(p.major, p.minor, p.patch, p.pre)
}

// floor is the smallest version the partial names ("1.2" → 1.2.0).
func (p partial) floor() Version {
	if p.parts == 3 {
		return p.version()
	}
	return newVersion(p.major, p.minor, 0, "")
}

// ceiling is the exclusive upper end of a partial ("1.2" → 1.3.0, "1" → 2.0.0).
func (p partial) ceiling() Version {
	switch p.parts {
	case 1:
		return newVersion(p.major+1, 0, 0, "")
	case 2:
		return newVersion(p.major, p.minor+1, 0, "")
	default:
		return newVersion(p.major, p.minor, p.patch+1, "")
	}
}

// caretCeiling keeps the left-most non-zero component fixed.
func (p partial) caretCeiling() Version {
	switch {
	case p.major > 0 || p.parts == 1:
		return newVersion(p.major+1, 0, 0, "")
	case p.minor > 0 || p.parts == 2:
		return newVersion(0, p.minor+1, 0, "")
	default:
		return newVersion(0, 0, p.patch+1, "")
	}
}
