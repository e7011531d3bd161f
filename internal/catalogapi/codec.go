package catalogapi

import (
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/product"
)

// encodeRequest renders the page request. The service expects every field as
// a string.
func encodeRequest(req catalog.PageRequest) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("page")
	e.Str(pageString(req.Page))
	e.FieldStart("pageSize")
	e.Str(pageString(req.PageSize))
	if req.StoreLocationID != "" {
		e.FieldStart("storeLocationId")
		e.Str(req.StoreLocationID)
	}
	e.ObjEnd()
	return e.Bytes()
}

// decodeEnvelope reads {es, message, statusCode, data:{...}}.
func decodeEnvelope(r io.Reader) (*catalog.Page, error) {
	var (
		page       *catalog.Page
		message    string
		statusCode int
	)
	d := jx.Decode(r, 4096)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message":
			s, err := optString(d)
			message = s
			return err
		case "statusCode":
			n, err := lenientInt(d)
			statusCode = n
			return err
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p, err := decodePage(d)
			page = p
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}

	if statusCode != 0 && (statusCode < 200 || statusCode > 299) {
		return nil, &StatusError{Code: statusCode, Message: message}
	}
	if page == nil {
		return nil, errors.New("decode envelope: missing data")
	}
	return page, nil
}

func decodePage(d *jx.Decoder) (*catalog.Page, error) {
	var p catalog.Page
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "totalRecords":
			p.TotalRecords, err = lenientInt(d)
		case "totalPages":
			p.TotalPages, err = lenientInt(d)
		case "currentPage":
			p.CurrentPage, err = lenientInt(d)
		case "pageSize":
			p.PageSize, err = lenientInt(d)
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				rec, err := decodeRecord(d)
				if err != nil {
					return err
				}
				p.Records = append(p.Records, rec)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode page")
	}
	return &p, nil
}

func decodeRecord(d *jx.Decoder) (product.Record, error) {
	var rec product.Record
	if d.Next() != jx.Object {
		// Non-object entries become an empty record and are defaulted by the
		// normalizer.
		return rec, d.Skip()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id", "_id":
			var id string
			id, err = lenientString(d)
			if rec.ID == "" {
				rec.ID = id
			}
		case "name":
			rec.Name, err = optString(d)
		case "main_category", "category":
			var c string
			c, err = optString(d)
			if rec.Category == "" {
				rec.Category = c
			}
		case "images":
			rec.Images, err = decodeImages(d)
		case "original_price":
			rec.OriginalPrice, err = lenientDecimal(d)
		case "discounted_price":
			rec.DiscountedPrice, err = lenientDecimal(d)
		case "discount_percent":
			rec.DiscountPercent, err = lenientDecimal(d)
		case "variants":
			rec.Variants, err = decodeVariants(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return rec, err
}

func decodeImages(d *jx.Decoder) (*product.Images, error) {
	if d.Next() != jx.Object {
		return nil, d.Skip()
	}
	var img product.Images
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "front" {
			return d.Skip()
		}
		s, err := optString(d)
		img.Front = s
		return err
	})
	return &img, err
}

func decodeVariants(d *jx.Decoder) ([]product.Variant, error) {
	if d.Next() != jx.Array {
		return nil, d.Skip()
	}
	var out []product.Variant
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		var v product.Variant
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id", "_id":
				v.ID, err = lenientString(d)
			case "inventory_sync_code", "inventorySyncCode":
				v.InventorySyncCode, err = lenientString(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// optString reads a string, treating null and non-string values as empty.
func optString(d *jx.Decoder) (string, error) {
	if d.Next() != jx.String {
		return "", d.Skip()
	}
	return d.Str()
}

// lenientString reads a string or a number as its literal text.
func lenientString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", d.Skip()
	}
}

// lenientDecimal reads a number or a numeric string. Null, blank and
// unparsable values yield nil.
func lenientDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	s, err := lenientString(d)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil, nil
	}
	return &v, nil
}

// lenientInt reads an integer from a number or numeric string. Fractions are
// truncated; anything else yields zero.
func lenientInt(d *jx.Decoder) (int, error) {
	v, err := lenientDecimal(d)
	if err != nil || v == nil {
		return 0, err
	}
	return int(v.IntPart()), nil
}
