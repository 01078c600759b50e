package types

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const separator = ','

// Serialize encodes a tuple as a single line of text. Strings are quoted, so
// the result never contains a raw newline.
func Serialize(t Tuple) string {
	var sb strings.Builder
	for i, v := range t {
		if i > 0 {
			sb.WriteByte(separator)
		}
		if v == nil {
			sb.WriteString("null")
			continue
		}
		sb.WriteString(v.String())
	}

	return sb.String()
}

// Deserialize decodes text produced by Serialize using the given type list.
func Deserialize(text string, typeList []Type) (Tuple, error) {
	tokens, err := split(text)
	if err != nil {
		return nil, err
	}

	if len(tokens) != len(typeList) {
		return nil, errors.WithStack(&ParseError{
			Text:   text,
			Reason: "expected " + strconv.Itoa(len(typeList)) + " values, found " + strconv.Itoa(len(tokens)),
		})
	}

	res := make(Tuple, len(tokens))
	for i, token := range tokens {
		v, err := parseValue(token, typeList[i])
		if err != nil {
			return nil, errors.WithStack(&ParseError{
				Text:   text,
				Reason: "position " + strconv.Itoa(i) + ": " + err.Error(),
			})
		}
		res[i] = v
	}

	return res, nil
}

func split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	tokens := []string{}
	for pos := 0; ; {
		var token string
		if text[pos] == '"' {
			quoted, err := strconv.QuotedPrefix(text[pos:])
			if err != nil {
				return nil, errors.WithStack(&ParseError{Text: text, Reason: "unterminated string at offset " + strconv.Itoa(pos)})
			}
			token = quoted
		} else {
			end := strings.IndexByte(text[pos:], separator)
			if end < 0 {
				end = len(text) - pos
			}
			token = text[pos : pos+end]
		}

		tokens = append(tokens, token)
		pos += len(token)

		if pos == len(text) {
			return tokens, nil
		}
		if text[pos] != separator {
			return nil, errors.WithStack(&ParseError{Text: text, Reason: "expected separator at offset " + strconv.Itoa(pos)})
		}
		pos++
		if pos == len(text) {
			// trailing separator means an empty last value
			return append(tokens, ""), nil
		}
	}
}

func parseValue(token string, t Type) (Value, error) {
	switch t {
	case Integer:
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, err
		}
		return IntValue(v), nil
	case Float:
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, err
		}
		return FloatValue(v), nil
	case Boolean:
		v, err := strconv.ParseBool(token)
		if err != nil {
			return nil, err
		}
		return BoolValue(v), nil
	case String:
		if token == "" || token[0] != '"' {
			return nil, errors.Errorf("string value %q is not quoted", token)
		}
		v, err := strconv.Unquote(token)
		if err != nil {
			return nil, err
		}
		return StringValue(v), nil
	default:
		return nil, errors.Errorf("unsupported type %s", t)
	}
}
