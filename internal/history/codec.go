package history

import (
	"encoding/json"
	"fmt"
)

func encode[T Record](item T) ([]byte, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("history: encode %s: %w", item.RecordID(), err)
	}
	return raw, nil
}

func decode[T Record](raw []byte) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("history: decode: %w", err)
	}
	return item, nil
}
