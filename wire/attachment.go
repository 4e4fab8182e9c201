package wire

import "github.com/ambercast/relay/errcode"

// Extract walks tree in pre-order, replacing every []byte leaf with a
// placeholder object of the form {"_placeholder":true,"num":k}, where k is
// the 1-based position of the attachment on the wire. It returns the
// rewritten tree and the attachments in wire order.
func Extract(tree interface{}) (interface{}, [][]byte) {
	var attachments [][]byte

	var walk func(node interface{}) interface{}
	walk = func(node interface{}) interface{} {
		switch v := node.(type) {
		case []byte:
			attachments = append(attachments, v)
			return placeholder(len(attachments))
		case []interface{}:
			out := make([]interface{}, len(v))
			for i, elem := range v {
				out[i] = walk(elem)
			}
			return out
		case map[string]interface{}:
			out := make(map[string]interface{}, len(v))
			for k, elem := range v {
				out[k] = walk(elem)
			}
			return out
		default:
			return v
		}
	}

	return walk(tree), attachments
}

// Inject is the inverse of Extract: it walks tree in pre-order, replacing
// every placeholder object with the corresponding entry from attachments.
func Inject(tree interface{}, attachments [][]byte) (interface{}, error) {
	var walkErr error

	var walk func(node interface{}) interface{}
	walk = func(node interface{}) interface{} {
		if walkErr != nil {
			return nil
		}
		switch v := node.(type) {
		case map[string]interface{}:
			if num, ok := placeholderNum(v); ok {
				idx := num - 1
				if idx < 0 || idx >= len(attachments) {
					walkErr = errcode.ErrCodePlaceholderOutOfRange.WithArgs(num)
					return nil
				}
				return attachments[idx]
			}
			out := make(map[string]interface{}, len(v))
			for k, elem := range v {
				out[k] = walk(elem)
			}
			return out
		case []interface{}:
			out := make([]interface{}, len(v))
			for i, elem := range v {
				out[i] = walk(elem)
			}
			return out
		default:
			return v
		}
	}

	result := walk(tree)
	if walkErr != nil {
		return nil, walkErr
	}
	return result, nil
}

func placeholder(num int) map[string]interface{} {
	return map[string]interface{}{
		"_placeholder": true,
		"num":          num,
	}
}

// placeholderNum reports the 1-based wire index encoded in a placeholder
// object, accepting either float64 (as produced by encoding/json on decode)
// or int (as produced in-process by Extract).
func placeholderNum(m map[string]interface{}) (int, bool) {
	flag, ok := m["_placeholder"].(bool)
	if !ok || !flag {
		return 0, false
	}

	switch n := m["num"].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
