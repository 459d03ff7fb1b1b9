// Package rules holds the rule book: per-axis mappings from source labels
// found in CbC reports to the sink names the pipeline assigns. Rules exist
// along two axes (column names, jurisdiction codes) and two kinds (strict
// and regex, told apart by the _regex_ marker in the source key). Scopes
// narrow from a global default to a company default to a single report
// year. The book answers "given this report and this source, what is the
// sink?" and can be written back to disk.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
)

type Axis int

const (
	AxisColumn Axis = iota
	AxisJurisdiction
)

func (a Axis) String() string {
	if a == AxisJurisdiction {
		return "jurisdiction"
	}
	return "column"
}

func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "column", "c":
		return AxisColumn, true
	case "jurisdiction", "j":
		return AxisJurisdiction, true
	}
	return 0, false
}

type ScopeLevel int

const (
	ScopeGlobal ScopeLevel = iota
	ScopeCompany
	ScopeYear
)

func (s ScopeLevel) String() string {
	switch s {
	case ScopeCompany:
		return "company"
	case ScopeYear:
		return "year"
	}
	return "default"
}

// markerPattern splits a regex rule key: everything after the first marker
// is the pattern, matched against sources anchored at the start.
var markerPattern = regexp.MustCompile(`_regex_(.*)`)

const (
	globalKey = "default"
	sectCol   = "column_rules"
	sectJur   = "jurisdiction_rules"
)

type rawKV struct {
	key string
	raw json.RawMessage
}

// Rule is one decoded entry. Shape problems do not fail the load; they are
// recorded on the rule (or its scope) and surface when the scope is used.
type Rule struct {
	Raw           string // source key as written, marker included
	Pattern       string // marker-stripped pattern, regex rules only
	Sink          string
	Justification string
	Comment       string
	Note          string

	object bool // entry was an object, not a bare sink string
	extra  []rawKV
	re     *regexp.Regexp
	err    error
	raw    json.RawMessage // original bytes, kept for save when err is set
}

func (r *Rule) IsPattern() bool { return r.Pattern != "" || r.re != nil }

// ScopeMap is one ordered scope of rules keyed by raw source.
type ScopeMap struct {
	rules []*Rule
	index map[string]*Rule

	err error           // scope value had the wrong shape
	raw json.RawMessage // original bytes, kept for save when err is set
}

func newScopeMap() *ScopeMap {
	return &ScopeMap{index: make(map[string]*Rule)}
}

func (sm *ScopeMap) put(r *Rule) {
	if old, ok := sm.index[r.Raw]; ok {
		*old = *r
		return
	}
	sm.rules = append(sm.rules, r)
	sm.index[r.Raw] = r
}

type yearRules struct {
	year  string
	rules *ScopeMap
}

type company struct {
	name   string
	def    *ScopeMap
	years  []*yearRules
	byYear map[string]*yearRules

	err error
	raw json.RawMessage
}

func (c *company) year(y string) *ScopeMap {
	if yr, ok := c.byYear[y]; ok {
		return yr.rules
	}
	return nil
}

func (c *company) ensureYear(y string) *ScopeMap {
	if yr, ok := c.byYear[y]; ok {
		return yr.rules
	}
	yr := &yearRules{year: y, rules: newScopeMap()}
	c.years = append(c.years, yr)
	c.byYear[y] = yr
	return yr.rules
}

type tree struct {
	def       *ScopeMap
	companies []*company
	byName    map[string]*company
}

func newTree() *tree {
	return &tree{byName: make(map[string]*company)}
}

func (t *tree) company(name string) *company {
	return t.byName[name]
}

func (t *tree) ensureCompany(name string) *company {
	if c, ok := t.byName[name]; ok {
		return c
	}
	c := &company{name: name, byYear: make(map[string]*yearRules)}
	t.companies = append(t.companies, c)
	t.byName[name] = c
	return c
}

// topSection preserves the document order of the rule book's top level so a
// save round-trips, unknown sections included.
type topSection struct {
	key  string
	tree *tree
	raw  json.RawMessage
}

// Book is a loaded rule book. It is safe for concurrent readers; Write must
// not race Resolve.
type Book struct {
	col, jur *tree
	sections []topSection
}

// Load reads a rule book from src, which may be the JSON text itself or a
// path to a JSON file, tried in that order.
func Load(src string) (*Book, error) {
	data := []byte(src)
	if !json.Valid(data) {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		data = b
	}
	book, err := decodeBook(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return book, nil
}

func (b *Book) tree(axis Axis) *tree {
	if axis == AxisJurisdiction {
		return b.jur
	}
	return b.col
}

func decodeBook(data []byte) (*Book, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	b := &Book{}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		switch key {
		case sectCol, sectJur:
			t, err := decodeTree(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", key, err)
			}
			if key == sectCol {
				b.col = t
			} else {
				b.jur = t
			}
			b.sections = append(b.sections, topSection{key: key, tree: t})
		default:
			b.sections = append(b.sections, topSection{key: key, raw: raw})
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if b.col == nil || b.jur == nil {
		return nil, errors.New("column_rules and jurisdiction_rules are both required")
	}
	return b, nil
}

func decodeTree(raw json.RawMessage) (*tree, error) {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || v[0] != '{' {
		return nil, errors.New("axis value is not an object")
	}
	t := newTree()
	dec := json.NewDecoder(bytes.NewReader(v))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		var sub json.RawMessage
		if err := dec.Decode(&sub); err != nil {
			return nil, err
		}
		if key == globalKey {
			t.def = decodeScopeMap(sub)
			continue
		}
		c := decodeCompany(key, sub)
		if old, ok := t.byName[key]; ok {
			*old = *c
			continue
		}
		t.companies = append(t.companies, c)
		t.byName[key] = c
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if t.def == nil {
		return nil, errors.New("axis has no default scope")
	}
	return t, nil
}

func decodeCompany(name string, raw json.RawMessage) *company {
	c := &company{name: name, byYear: make(map[string]*yearRules)}
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || v[0] != '{' {
		c.err = fmt.Errorf("company %q is not an object", name)
		c.raw = raw
		return c
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	if err := expectDelim(dec, '{'); err != nil {
		c.err, c.raw = err, raw
		return c
	}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			c.err, c.raw = err, raw
			return c
		}
		var sub json.RawMessage
		if err := dec.Decode(&sub); err != nil {
			c.err, c.raw = err, raw
			return c
		}
		sm := decodeScopeMap(sub)
		if key == globalKey {
			c.def = sm
			continue
		}
		if old, ok := c.byYear[key]; ok {
			old.rules = sm
			continue
		}
		yr := &yearRules{year: key, rules: sm}
		c.years = append(c.years, yr)
		c.byYear[key] = yr
	}
	return c
}

func decodeScopeMap(raw json.RawMessage) *ScopeMap {
	sm := newScopeMap()
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || v[0] != '{' {
		sm.err = errors.New("scope value is not an object")
		sm.raw = raw
		return sm
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	if err := expectDelim(dec, '{'); err != nil {
		sm.err, sm.raw = err, raw
		return sm
	}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			sm.err, sm.raw = err, raw
			return sm
		}
		var entry json.RawMessage
		if err := dec.Decode(&entry); err != nil {
			sm.err, sm.raw = err, raw
			return sm
		}
		sm.put(decodeRule(key, entry))
	}
	return sm
}

func decodeRule(key string, raw json.RawMessage) *Rule {
	r := &Rule{Raw: key}
	if m := markerPattern.FindStringSubmatch(key); m != nil {
		r.Pattern = m[1]
		re, err := regexp.Compile("^(?:" + r.Pattern + ")")
		if err != nil {
			r.err = fmt.Errorf("rule %q: bad pattern: %v", key, err)
		} else {
			r.re = re
		}
	}
	v := bytes.TrimSpace(raw)
	switch {
	case len(v) > 0 && v[0] == '"':
		if err := json.Unmarshal(v, &r.Sink); err != nil && r.err == nil {
			r.err = fmt.Errorf("rule %q: %v", key, err)
		}
	case len(v) > 0 && v[0] == '{':
		if err := r.decodeObject(v); err != nil && r.err == nil {
			r.err = err
		}
	default:
		if r.err == nil {
			r.err = fmt.Errorf("rule %q must be a sink string or a rule object", key)
		}
	}
	if r.err != nil {
		r.raw = raw
	}
	return r
}

func (r *Rule) decodeObject(raw []byte) error {
	r.object = true
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	sawSink := false
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return err
		}
		var fv json.RawMessage
		if err := dec.Decode(&fv); err != nil {
			return err
		}
		var dst *string
		switch key {
		case "sink":
			dst, sawSink = &r.Sink, true
		case "justification":
			dst = &r.Justification
		case "comment":
			dst = &r.Comment
		case "note":
			dst = &r.Note
		default:
			r.extra = append(r.extra, rawKV{key: key, raw: fv})
			continue
		}
		if err := json.Unmarshal(fv, dst); err != nil {
			return fmt.Errorf("rule %q: %s: %v", r.Raw, key, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if !sawSink {
		return fmt.Errorf("rule %q has no sink", r.Raw)
	}
	return nil
}

func nextKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("want object key, got %v", tok)
	}
	return s, nil
}

func expectDelim(dec *json.Decoder, d rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if dl, ok := tok.(json.Delim); !ok || dl != json.Delim(d) {
		return fmt.Errorf("want %q, got %v", d, tok)
	}
	return nil
}

// Save writes the book back to disk, preserving section, scope and rule
// order. New rules appear where Write appended them.
func (b *Book) Save(path string) error {
	var buf bytes.Buffer
	if err := b.encode(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const indentUnit = "    "

func (b *Book) encode(w io.Writer) error {
	buf := &bytes.Buffer{}
	buf.WriteString("{")
	for i, s := range b.sections {
		writeSep(buf, i == 0, 1)
		writeKey(buf, s.key)
		if s.tree != nil {
			encodeTree(buf, s.tree)
		} else if err := writeRaw(buf, s.raw, 1); err != nil {
			return err
		}
	}
	buf.WriteString("\n}")
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeTree(buf *bytes.Buffer, t *tree) {
	buf.WriteString("{")
	n := 0
	if t.def != nil {
		writeSep(buf, n == 0, 2)
		n++
		writeKey(buf, globalKey)
		encodeScopeMap(buf, t.def, 2)
	}
	for _, c := range t.companies {
		writeSep(buf, n == 0, 2)
		n++
		writeKey(buf, c.name)
		encodeCompany(buf, c)
	}
	closeBrace(buf, n == 0, 1)
}

func encodeCompany(buf *bytes.Buffer, c *company) {
	if c.err != nil {
		writeRaw(buf, c.raw, 2)
		return
	}
	buf.WriteString("{")
	n := 0
	if c.def != nil {
		writeSep(buf, n == 0, 3)
		n++
		writeKey(buf, globalKey)
		encodeScopeMap(buf, c.def, 3)
	}
	for _, yr := range c.years {
		writeSep(buf, n == 0, 3)
		n++
		writeKey(buf, yr.year)
		encodeScopeMap(buf, yr.rules, 3)
	}
	closeBrace(buf, n == 0, 2)
}

func encodeScopeMap(buf *bytes.Buffer, sm *ScopeMap, depth int) {
	if sm.err != nil {
		writeRaw(buf, sm.raw, depth)
		return
	}
	buf.WriteString("{")
	for i, r := range sm.rules {
		writeSep(buf, i == 0, depth+1)
		writeKey(buf, r.Raw)
		encodeRule(buf, r, depth+1)
	}
	closeBrace(buf, len(sm.rules) == 0, depth)
}

func encodeRule(buf *bytes.Buffer, r *Rule, depth int) {
	if r.err != nil && len(r.raw) > 0 {
		writeRaw(buf, r.raw, depth)
		return
	}
	if !r.object {
		writeString(buf, r.Sink)
		return
	}
	buf.WriteString("{")
	writeSep(buf, true, depth+1)
	writeKey(buf, "sink")
	writeString(buf, r.Sink)
	writeSep(buf, false, depth+1)
	writeKey(buf, "justification")
	writeString(buf, r.Justification)
	if r.Comment != "" {
		writeSep(buf, false, depth+1)
		writeKey(buf, "comment")
		writeString(buf, r.Comment)
	}
	if r.Note != "" {
		writeSep(buf, false, depth+1)
		writeKey(buf, "note")
		writeString(buf, r.Note)
	}
	for _, kv := range r.extra {
		writeSep(buf, false, depth+1)
		writeKey(buf, kv.key)
		writeRaw(buf, kv.raw, depth+1)
	}
	closeBrace(buf, false, depth)
}

func writeSep(buf *bytes.Buffer, first bool, depth int) {
	if !first {
		buf.WriteString(",")
	}
	buf.WriteString("\n")
	for i := 0; i < depth; i++ {
		buf.WriteString(indentUnit)
	}
}

func closeBrace(buf *bytes.Buffer, empty bool, depth int) {
	if empty {
		buf.WriteString("}")
		return
	}
	buf.WriteString("\n")
	for i := 0; i < depth; i++ {
		buf.WriteString(indentUnit)
	}
	buf.WriteString("}")
}

func writeKey(buf *bytes.Buffer, key string) {
	writeString(buf, key)
	buf.WriteString(": ")
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeRaw(buf *bytes.Buffer, raw json.RawMessage, depth int) error {
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += indentUnit
	}
	return json.Indent(buf, raw, prefix, indentUnit)
}
