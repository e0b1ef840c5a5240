package tasks

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/task_list.schema.json
var taskListSchemaJSON string

var taskListSchema = jsonschema.MustCompileString("task_list.schema.json", taskListSchemaJSON)

// ErrUnknownKind is returned when a record names a kind outside the known set.
var ErrUnknownKind = errors.New("tasks: unknown task kind")

// New returns a zero task of the given kind.
func New(kind Kind) (Task, error) {
	switch kind {
	case KindHarvest:
		return &Harvest{}, nil
	case KindUpgrade:
		return &Upgrade{}, nil
	case KindTransfer:
		return &Transfer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Encode serializes one task as a tagged record.
func Encode(t Task) ([]byte, error) {
	switch v := t.(type) {
	case *Harvest:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*Harvest
		}{KindHarvest, v})
	case *Upgrade:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*Upgrade
		}{KindUpgrade, v})
	case *Transfer:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*Transfer
		}{KindTransfer, v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, t)
	}
}

// Decode parses one tagged record.
func Decode(data []byte) (Task, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("tasks: decode record: %w", err)
	}
	t, err := New(head.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("tasks: decode %s: %w", head.Kind, err)
	}
	return t, nil
}

// EncodeList serializes a task list into its persisted form.
func EncodeList(list []Task) (string, error) {
	records := make([]json.RawMessage, 0, len(list))
	for i, t := range list {
		rec, err := Encode(t)
		if err != nil {
			return "", fmt.Errorf("tasks: encode item %d: %w", i, err)
		}
		records = append(records, rec)
	}
	out, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("tasks: encode list: %w", err)
	}
	return string(out), nil
}

// DecodeList parses a persisted task list. The empty string decodes to an
// empty list. Input is validated against the task list schema first.
func DecodeList(raw string) ([]Task, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("tasks: decode list: %w", err)
	}
	if err := taskListSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("tasks: task list rejected: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("tasks: decode list: %w", err)
	}
	list := make([]Task, 0, len(records))
	for i, rec := range records {
		t, err := Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("tasks: item %d: %w", i, err)
		}
		list = append(list, t)
	}
	return list, nil
}
