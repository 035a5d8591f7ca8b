package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidScenario 场景数据不符合格式要求
var ErrInvalidScenario = errors.New("invalid scenario")

const scenarioSchemaURL = "scenario.schema.json"

const scenarioSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["map", "lights", "cars"],
  "definitions": {
    "position": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0},
      "minItems": 2,
      "maxItems": 2
    },
    "index": {"type": "integer", "minimum": 0}
  },
  "properties": {
    "name": {"type": "string"},
    "map": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "array",
        "minItems": 1,
        "items": {"type": "integer", "enum": [0, 1]}
      }
    },
    "lights": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "position"],
        "properties": {
          "id": {"type": "integer"},
          "position": {"$ref": "#/definitions/position"},
          "successor": {"$ref": "#/definitions/index"}
        }
      }
    },
    "cars": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "position"],
        "properties": {
          "id": {"type": "integer"},
          "position": {"$ref": "#/definitions/position"},
          "intent": {"type": "string", "enum": ["straight", "frente", "left", "right"]},
          "light": {"$ref": "#/definitions/index"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString(scenarioSchemaURL, scenarioSchema)

// Validate 校验场景结构
// 功能：将场景转换为JSON通用结构后使用JSON Schema校验
// 说明：只校验结构与取值范围，跨字段约束（环、占用、下标范围）由各管理器初始化时检查
func Validate(s *Scenario) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}
