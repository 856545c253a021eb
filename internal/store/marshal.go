package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
)

// Row values are JSON arrays, positional like the legacy format:
//
//	cube:   [center, subIds, corners]      corner = [position, color255, weight, tag]
//	vertex: [color255, position, tag, weight]

// cubeAttrs holds cube fields legacy rows did not have.
type cubeAttrs struct {
	Size    model.Size     `json:"size"`
	Extents symbol.Extents `json:"extents"`
	Color   string         `json:"color"`
}

func marshalCubeValue(c model.Cube) (string, error) {
	corners := make([]any, len(c.Corners))
	for i, v := range c.Corners {
		corners[i] = []any{v.Position, v.Color.RGB8(), v.Weight, v.Tag}
	}
	subIDs := c.SubIDs
	if subIDs == nil {
		subIDs = []string{}
	}
	return marshalJSON([]any{c.Center, subIDs, corners})
}

func marshalCubeAttrs(c model.Cube) (string, error) {
	return marshalJSON(cubeAttrs{Size: c.Size, Extents: c.Extents, Color: c.Color.Hex()})
}

// unmarshalCubeValue decodes a cube value into c. Missing trailing elements
// and null entries are tolerated; legacy rows carry only a prefix.
func unmarshalCubeValue(data string, c *model.Cube) error {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(data), &parts); err != nil {
		return fmt.Errorf("unmarshal cube value: %w", err)
	}

	if len(parts) > 0 && !isNull(parts[0]) {
		if err := json.Unmarshal(parts[0], &c.Center); err != nil {
			return fmt.Errorf("unmarshal cube center: %w", err)
		}
	}

	c.SubIDs = []string{}
	if len(parts) > 1 {
		ids, err := decodeSubIDs(parts[1])
		if err != nil {
			return err
		}
		c.SubIDs = ids
	}

	if len(parts) > 2 && !isNull(parts[2]) {
		var corners []json.RawMessage
		if err := json.Unmarshal(parts[2], &corners); err != nil {
			return fmt.Errorf("unmarshal cube corners: %w", err)
		}
		for i, raw := range corners {
			if i >= model.VerticesPerSubCube {
				break
			}
			v, err := unmarshalCorner(raw)
			if err != nil {
				return fmt.Errorf("unmarshal cube corner %d: %w", i, err)
			}
			v.Index = i
			c.Corners[i] = v
		}
	}
	return nil
}

func unmarshalCorner(raw json.RawMessage) (model.Vertex, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return model.Vertex{}, err
	}
	v := model.Vertex{Weight: 1, Tag: model.TagBackground}
	if len(parts) > 0 {
		if err := decodeOptional(parts[0], &v.Position); err != nil {
			return v, err
		}
	}
	if len(parts) > 1 {
		var rgb [3]int
		if err := decodeOptional(parts[1], &rgb); err != nil {
			return v, err
		}
		v.Color = model.FromRGB8(rgb)
	}
	if len(parts) > 2 {
		if err := decodeOptional(parts[2], &v.Weight); err != nil {
			return v, err
		}
	}
	if len(parts) > 3 {
		if err := decodeOptional(parts[3], &v.Tag); err != nil {
			return v, err
		}
	}
	return v, nil
}

func unmarshalCubeAttrs(data string, c *model.Cube) error {
	var a cubeAttrs
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return fmt.Errorf("unmarshal cube attrs: %w", err)
	}
	c.Size = a.Size
	c.Extents = a.Extents
	if a.Color != "" {
		col, err := model.ParseHex(a.Color)
		if err != nil {
			return err
		}
		c.Color = col
	}
	return nil
}

// legacySubIDs extracts the embedded symbol list of a cube value. A missing
// or non-array element yields no symbols; a value that is not JSON is an error.
func legacySubIDs(data string) ([]string, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(data), &parts); err != nil {
		return nil, fmt.Errorf("unmarshal cube value: %w", err)
	}
	if len(parts) < 2 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(parts[1], &ids); err != nil {
		// non-array list: nothing to migrate
		return nil, nil
	}
	return ids, nil
}

func decodeSubIDs(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal cube subIds: %w", err)
	}
	return ids, nil
}

func marshalVertexValue(v model.Vertex) (string, error) {
	return marshalJSON([]any{v.Color.RGB8(), v.Position, v.Tag, v.Weight})
}

func unmarshalVertexValue(data string, v *model.Vertex) error {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(data), &parts); err != nil {
		return fmt.Errorf("unmarshal vertex value: %w", err)
	}
	v.Weight = 1
	if len(parts) > 0 {
		var rgb [3]int
		if err := decodeOptional(parts[0], &rgb); err != nil {
			return fmt.Errorf("unmarshal vertex color: %w", err)
		}
		v.Color = model.FromRGB8(rgb)
	}
	if len(parts) > 1 {
		if err := decodeOptional(parts[1], &v.Position); err != nil {
			return fmt.Errorf("unmarshal vertex position: %w", err)
		}
	}
	if len(parts) > 2 {
		if err := decodeOptional(parts[2], &v.Tag); err != nil {
			return fmt.Errorf("unmarshal vertex tag: %w", err)
		}
	}
	if len(parts) > 3 {
		if err := decodeOptional(parts[3], &v.Weight); err != nil {
			return fmt.Errorf("unmarshal vertex weight: %w", err)
		}
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	// Encoder adds a trailing newline
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeOptional(raw json.RawMessage, dst any) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
