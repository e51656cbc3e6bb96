package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownOp is returned for frames whose op the client does not handle.
var ErrUnknownOp = errors.New("unknown op")

// Encode validates m and writes it to w as a single JSON frame.
func Encode(w io.Writer, m *Message) error {
	if err := Validate(m); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return nil
}

// Decode reads one frame from r and validates it.
// Unknown fields are ignored since bridge versions add them freely; unknown ops are not.
func Decode(r io.Reader) (*Message, error) {
	var m Message

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the fields required by the message's op.
func Validate(m *Message) error {
	if m == nil {
		return fmt.Errorf("message is nil")
	}
	if m.Op == "" {
		return fmt.Errorf("message missing required field: op")
	}

	switch m.Op {
	case OpCallService:
		if m.Service == "" {
			return fmt.Errorf("%s missing required field: service", m.Op)
		}
	case OpServiceResponse:
		if m.Service == "" {
			return fmt.Errorf("%s missing required field: service", m.Op)
		}
		if m.Result == nil {
			return fmt.Errorf("%s missing required field: result", m.Op)
		}
	case OpSendActionGoal:
		if m.Action == "" {
			return fmt.Errorf("%s missing required field: action", m.Op)
		}
		if m.ActionType == "" {
			return fmt.Errorf("%s missing required field: action_type", m.Op)
		}
	case OpActionFeedback, OpCancelActionGoal:
		if m.Action == "" {
			return fmt.Errorf("%s missing required field: action", m.Op)
		}
	case OpActionResult:
		if m.Action == "" {
			return fmt.Errorf("%s missing required field: action", m.Op)
		}
		if m.Result == nil {
			return fmt.Errorf("%s missing required field: result", m.Op)
		}
	case OpStatus:
		if m.Level == "" {
			return fmt.Errorf("%s missing required field: level", m.Op)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
	}

	if m.ID == "" {
		return fmt.Errorf("%s missing required field: id", m.Op)
	}
	return nil
}

// NewActionGoal builds a send_action_goal frame with feedback enabled.
func NewActionGoal(id, action, actionType string, goal any) (*Message, error) {
	args, err := json.Marshal(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal goal: %w", err)
	}
	return &Message{
		Op:         OpSendActionGoal,
		ID:         id,
		Action:     action,
		ActionType: actionType,
		Args:       args,
		Feedback:   true,
	}, nil
}

// NewServiceCall builds a call_service frame with empty arguments.
func NewServiceCall(id, service string) *Message {
	return &Message{
		Op:      OpCallService,
		ID:      id,
		Service: service,
		Args:    json.RawMessage(`{}`),
	}
}

// DecodeValues unmarshals the Values payload into v.
func DecodeValues(m *Message, v any) error {
	if len(m.Values) == 0 {
		return fmt.Errorf("%s has no values", m.Op)
	}
	if err := json.Unmarshal(m.Values, v); err != nil {
		return fmt.Errorf("failed to decode %s values: %w", m.Op, err)
	}
	return nil
}
