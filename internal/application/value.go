package application

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the answer value types an interview can collect.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInteger
)

// Value holds one collected answer. Integer answers keep the raw extracted
// digit runs as strings; range checks happen at the question layer.
type Value struct {
	Kind Kind
	Bool bool
	Ints []string
	Text string
}

func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func IntsValue(vals []string) Value {
	return Value{Kind: KindInteger, Ints: vals}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInteger:
		return json.Marshal(v.Ints)
	default:
		return json.Marshal(v.Text)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var ints []string
	if err := json.Unmarshal(data, &ints); err == nil {
		*v = IntsValue(ints)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}
	return fmt.Errorf("unsupported answer value: %s", string(data))
}

// Answer pairs a question name with its collected value.
type Answer struct {
	Name  string
	Value Value
}

// Answers is an ordered question-name to value mapping. Insertion order
// follows the interview order and drives card rendering, so it serializes
// as a JSON object whose keys keep that order.
type Answers []Answer

// Get returns the value stored under name.
func (a Answers) Get(name string) (Value, bool) {
	for _, ans := range a {
		if ans.Name == name {
			return ans.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value under name, or appends it at the end.
func (a *Answers) Set(name string, v Value) {
	for i, ans := range *a {
		if ans.Name == name {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Answer{Name: name, Value: v})
}

func (a Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ans := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ans.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ans.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("answers: expected object, got %v", tok)
	}
	out := Answers{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answers: expected string key, got %v", keyTok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Answer{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}
