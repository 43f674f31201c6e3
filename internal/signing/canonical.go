package signing

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Params is a nested parameter tree as sent to the upstream API. Values are
// scalars, nil, or another Params level; arrays are not part of the protocol.
type Params map[string]any

// Encode flattens a parameter tree into the canonical query string the
// upstream signs against. Nested levels use composite keys (`parent[child]`),
// keys are sorted at each level so the output is deterministic, and nil
// values are skipped entirely: an omitted field and an unset field must be
// indistinguishable on the wire or signatures mismatch.
func Encode(params Params) (string, error) {
	return encode(params, "")
}

func encode(params Params, prefix string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		v := params[k]
		if v == nil {
			continue
		}
		composite := k
		if prefix != "" {
			composite = fmt.Sprintf("%s[%s]", prefix, k)
		}
		switch val := v.(type) {
		case Params:
			nested, err := encode(val, composite)
			if err != nil {
				return "", err
			}
			if nested != "" {
				pairs = append(pairs, nested)
			}
		case map[string]any:
			nested, err := encode(Params(val), composite)
			if err != nil {
				return "", err
			}
			if nested != "" {
				pairs = append(pairs, nested)
			}
		default:
			scalar, err := formatScalar(val)
			if err != nil {
				return "", fmt.Errorf("encode %q: %w", composite, err)
			}
			pairs = append(pairs, url.QueryEscape(composite)+"="+url.QueryEscape(scalar))
		}
	}
	return strings.Join(pairs, "&"), nil
}

func formatScalar(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case decimal.Decimal:
		return val.String(), nil
	default:
		// A mis-serialized array would only surface as a verification failure
		// on the upstream side, so unsupported kinds fail loudly here.
		kind := reflect.ValueOf(v).Kind()
		if kind == reflect.Slice || kind == reflect.Array {
			return "", fmt.Errorf("array values are not supported by the signing protocol")
		}
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
