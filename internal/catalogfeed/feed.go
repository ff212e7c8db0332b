// Package catalogfeed decodes catalog items from JSON documents: a single
// array for seed files and newline-delimited objects, optionally
// gzip-compressed, for bulk imports. Every decoded item is validated.
package catalogfeed

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

// maxLineBytes bounds a single JSON-lines record.
const maxLineBytes = 1 << 20

// DecodeItem reads one item object. Unknown keys are ignored, is_active
// defaults to true.
func DecodeItem(d *jx.Decoder) (catalog.Item, error) {
	it := catalog.Item{Active: true}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			it.Name, err = d.Str()
			it.Name = strings.TrimSpace(it.Name)
		case "description":
			it.Description, err = d.Str()
		case "category":
			var c string
			c, err = d.Str()
			it.Category = catalog.Category(strings.ToUpper(strings.TrimSpace(c)))
		case "price":
			it.Price, err = readDecimal(d)
		case "discount_price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = readDecimal(d)
			it.DiscountPrice = &v
		case "stock":
			it.Stock, err = d.Int()
		case "is_featured":
			it.Featured, err = d.Bool()
		case "is_active":
			it.Active, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return catalog.Item{}, err
	}
	if err := it.Validate(); err != nil {
		return catalog.Item{}, err
	}
	return it, nil
}

// readDecimal accepts a JSON number or a numeric string.
func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(strings.TrimSpace(s))
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(string(n))
}

// ReadArray decodes a JSON array of items.
func ReadArray(r io.Reader) ([]catalog.Item, error) {
	var items []catalog.Item
	d := jx.Decode(r, 4096)
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := DecodeItem(d)
		if err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return items, nil
}

// ReadArrayFile decodes a JSON array of items from path.
func ReadArrayFile(path string) ([]catalog.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()
	return ReadArray(f)
}

// ReadLines calls fn for every item of a JSON-lines stream. Blank lines
// are skipped; line numbers start at 1.
func ReadLines(ctx context.Context, r io.Reader, fn func(line int, it catalog.Item) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		it, err := DecodeItem(jx.DecodeBytes(raw))
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if err := fn(line, it); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

// ReadFile streams a JSON-lines file, transparently decompressing paths
// ending in .gz.
func ReadFile(ctx context.Context, path string, fn func(line int, it catalog.Item) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := ReadLines(ctx, r, fn); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}
