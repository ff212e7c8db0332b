package handler

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const maxBodyBytes = 64 << 10

// errMalformedBody is reported for bodies that are not a JSON object.
var errMalformedBody = errors.New("malformed JSON body")

// fieldErrors collects per-field problems found while decoding a body.
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	return "invalid request fields"
}

// decodeObject reads a JSON object body and hands every member to fn. An
// empty body is treated as an empty object.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return errMalformedBody
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		var fe fieldErrors
		if errors.As(err, &fe) {
			return fe
		}
		return errors.Wrap(errMalformedBody, err.Error())
	}
	return nil
}

// readInt reads a JSON integer or a string holding one. Null yields
// ok=false.
func readInt(d *jx.Decoder, field string) (n int, ok bool, err error) {
	invalid := fieldErrors{field: "A valid integer is required."}
	var v int64
	switch d.Next() {
	case jx.Null:
		return 0, false, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		v, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, false, invalid
		}
	case jx.Number:
		if v, err = d.Int64(); err != nil {
			return 0, false, invalid
		}
	default:
		if err := d.Skip(); err != nil {
			return 0, false, err
		}
		return 0, false, invalid
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false, invalid
	}
	return int(v), true, nil
}

// readString reads a JSON string. Null yields "".
func readString(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	default:
		if err := d.Skip(); err != nil {
			return "", err
		}
		return "", fieldErrors{field: "Not a valid string."}
	}
}
