package server

// runRequestSchema validates POST /v1/runs bodies before they are decoded.
const runRequestSchema = `{
  "type": "object",
  "required": ["task"],
  "additionalProperties": false,
  "properties": {
    "task": {"type": "string", "minLength": 1},
    "max_steps": {"type": "integer", "minimum": 0},
    "variables": {
      "type": "object",
      "patternProperties": {"^[A-Za-z_][A-Za-z0-9_]*$": {}},
      "additionalProperties": false
    },
    "tables": {
      "type": "object",
      "patternProperties": {
        "^[A-Za-z_][A-Za-z0-9_]*$": {
          "type": "object",
          "required": ["columns", "rows"],
          "additionalProperties": false,
          "properties": {
            "columns": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
            "rows": {"type": "array", "items": {"type": "array"}}
          }
        }
      },
      "additionalProperties": false
    },
    "arrays": {
      "type": "object",
      "patternProperties": {
        "^[A-Za-z_][A-Za-z0-9_]*$": {
          "type": "array",
          "minItems": 1,
          "items": {"type": "array", "minItems": 1, "items": {"type": "number"}}
        }
      },
      "additionalProperties": false
    }
  }
}`
