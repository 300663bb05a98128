package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const ActionRequestItems = "request_items"

var errNotObject = errors.New("control message is not a JSON object")

// Control is a decoded client message. Fields keep their raw JSON types so
// shape checks happen after parsing, not during it.
type Control struct {
	fields map[string]any
}

func ParseControl(data []byte) (Control, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Control{}, fmt.Errorf("decode control message: %w", err)
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return Control{}, errNotObject
	}
	return Control{fields: fields}, nil
}

func (c Control) Action() string {
	action, _ := c.fields["action"].(string)
	return action
}

// ReplayCount reports the requested count for a request_items message. It is
// false for any other action and for a missing or non-integer count.
func (c Control) ReplayCount() (int64, bool) {
	if c.Action() != ActionRequestItems {
		return 0, false
	}
	num, ok := c.fields["count"].(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}
