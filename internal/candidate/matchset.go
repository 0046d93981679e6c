package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Match is the verdict for one requirement item.
type Match struct {
	Item    string
	Matched bool
}

// MatchSet is an ordered list of requirement verdicts. On the wire it is a JSON
// object keyed by requirement text; key order is preserved in both directions.
// A bare boolean is accepted as a single unnamed verdict.
type MatchSet []Match

// Matched returns the number of satisfied items.
func (s MatchSet) Matched() int {
	n := 0
	for _, m := range s {
		if m.Matched {
			n++
		}
	}
	return n
}

// Total returns the number of items.
func (s MatchSet) Total() int {
	return len(s)
}

// String renders the set as "item: true, item: false".
func (s MatchSet) String() string {
	parts := make([]string, 0, len(s))
	for _, m := range s {
		if m.Item == "" {
			parts = append(parts, fmt.Sprintf("%t", m.Matched))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %t", m.Item, m.Matched))
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON writes the set as an object, or as a bare boolean when it holds a
// single unnamed verdict.
func (s MatchSet) MarshalJSON() ([]byte, error) {
	if len(s) == 1 && s[0].Item == "" {
		return json.Marshal(s[0].Matched)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		item, err := json.Marshal(m.Item)
		if err != nil {
			return nil, err
		}
		buf.Write(item)
		buf.WriteByte(':')
		if m.Matched {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of booleans keeping key order. Null yields an
// empty set.
func (s *MatchSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*s = MatchSet{}
		return nil
	case bytes.Equal(trimmed, []byte("true")), bytes.Equal(trimmed, []byte("false")):
		*s = MatchSet{{Matched: bytes.Equal(trimmed, []byte("true"))}}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode match set: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode match set: expected object or boolean, got %v", tok)
	}

	set := MatchSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode match set: %w", err)
		}
		item, _ := keyTok.(string)

		var matched bool
		if err := dec.Decode(&matched); err != nil {
			return fmt.Errorf("decode match set %q: %w", item, err)
		}
		set = append(set, Match{Item: strings.TrimSpace(item), Matched: matched})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode match set: %w", err)
	}

	*s = set
	return nil
}
