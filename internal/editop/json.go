package editop

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned when decoding an operation with an
// unrecognized type discriminant.
var ErrUnknownOperation = errors.New("editop: unknown operation type")

// Operations is an ordered list of edit operations. The JSON form of each
// element is an envelope carrying the payload fields plus a "type"
// discriminant, e.g. {"type":"trim","start_seconds":2,"end_seconds":5.5}.
type Operations []Operation

// MarshalJSON encodes each operation with its type discriminant injected
// into the payload object.
func (ops Operations) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("editop: marshal %s: %w", op.Kind(), err)
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("editop: marshal %s: %w", op.Kind(), err)
		}
		fields["type"] = json.RawMessage(fmt.Sprintf("%q", op.Kind()))

		merged, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("editop: marshal %s: %w", op.Kind(), err)
		}
		out = append(out, merged)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of operation envelopes, dispatching on the
// type discriminant. Unknown types fail with ErrUnknownOperation.
func (ops *Operations) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("editop: unmarshal operations: %w", err)
	}

	decoded := make(Operations, 0, len(raw))
	for i, item := range raw {
		var head struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return fmt.Errorf("editop: unmarshal operation %d: %w", i, err)
		}

		op, err := decodeOperation(head.Type, item)
		if err != nil {
			return fmt.Errorf("editop: unmarshal operation %d: %w", i, err)
		}
		decoded = append(decoded, op)
	}

	*ops = decoded
	return nil
}

// decodeOperation decodes a single envelope into its concrete type.
// The switch is exhaustive over Kind.
func decodeOperation(kind Kind, data []byte) (Operation, error) {
	switch kind {
	case KindTrim:
		var op Trim
		return op, json.Unmarshal(data, &op)
	case KindResize:
		var op Resize
		return op, json.Unmarshal(data, &op)
	case KindCrop:
		var op Crop
		return op, json.Unmarshal(data, &op)
	case KindRotate:
		var op Rotate
		return op, json.Unmarshal(data, &op)
	case KindFlip:
		var op Flip
		return op, json.Unmarshal(data, &op)
	case KindAdjust:
		var op Adjust
		return op, json.Unmarshal(data, &op)
	case KindBlur:
		var op Blur
		return op, json.Unmarshal(data, &op)
	case KindFilter:
		var op Filter
		return op, json.Unmarshal(data, &op)
	case KindWatermark:
		var op Watermark
		return op, json.Unmarshal(data, &op)
	case KindSpeed:
		var op Speed
		return op, json.Unmarshal(data, &op)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, kind)
	}
}
