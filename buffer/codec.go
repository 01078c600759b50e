package buffer

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/types"
)

const hashSeparator = ':'

// encodeEntries renders one "<hash>:<tuple>" line per entry, in entry order.
func encodeEntries(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.Hash.String())
		buf.WriteByte(hashSeparator)
		buf.WriteString(types.Serialize(e.Tuple))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func decodeEntries(data []byte, typeList []types.Type) ([]Entry, error) {
	var entries []Entry

	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		sep := strings.IndexByte(line, hashSeparator)
		if sep < 0 {
			return nil, errors.Wrapf(&types.ParseError{Text: line, Reason: "missing hash separator"}, "line %d", n+1)
		}

		hash, ok := new(big.Int).SetString(line[:sep], 10)
		if !ok || hash.Sign() < 0 {
			return nil, errors.Wrapf(&types.ParseError{Text: line, Reason: "invalid hash"}, "line %d", n+1)
		}

		tuple, err := types.Deserialize(line[sep+1:], typeList)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+1)
		}

		entries = append(entries, Entry{Hash: hash, Tuple: tuple})
	}

	return entries, nil
}
