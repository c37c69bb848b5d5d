package sale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for persisted payloads and
// fingerprints.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized, so a comment typed on two keyboards
//     produces the same bytes
//  4. Decimals are encoded as strings to keep exact precision
//  5. null is rejected; optional fields are omitted instead
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case bool:
		return strconv.AppendBool(nil, val), nil
	case int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case decimal.Decimal:
		return marshalCanonicalString(val.String())
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareUTF16 orders strings by UTF-16 code units (RFC 8785).
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// itemsValue converts items to the generic form accepted by MarshalCanonical.
func itemsValue(items []Item) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"price":      it.Price,
			"cost_price": it.CostPrice,
		}
	}
	return out
}

// EncodeItems returns the canonical JSON form of items.
func EncodeItems(items []Item) ([]byte, error) {
	return MarshalCanonical(itemsValue(items))
}

// DecodeItems parses items written by EncodeItems.
// Returns an empty slice, not nil, for an empty array.
func DecodeItems(data []byte) ([]Item, error) {
	items := []Item{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

// payloadValue is the part of an intent that describes the sale itself.
// Identity and bookkeeping fields (local id, timestamps, status) are left out
// so that two intents for the same sale share a fingerprint.
func payloadValue(in Intent) map[string]any {
	obj := map[string]any{
		"company_id":     in.CompanyID,
		"payment_method": in.PaymentMethod,
		"total_amount":   in.TotalAmount,
		"items":          itemsValue(in.Items),
	}
	if in.StoreLocationID != "" {
		obj["store_location_id"] = in.StoreLocationID
	}
	if in.CustomerID != "" {
		obj["customer_id"] = in.CustomerID
	}
	if in.Comment != "" {
		obj["comment"] = in.Comment
	}
	if !in.OperationAt.IsZero() {
		obj["operation_at"] = in.OperationAt.UTC().Format(time.RFC3339Nano)
	}
	return obj
}
