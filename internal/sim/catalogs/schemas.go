package catalogs

// Schemas are embedded so catalog validation cannot drift from the loader.

const rosterSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "title", "department", "seniority", "fte_percent", "skills", "personality", "desk"],
    "properties": {
      "id": {"type": "string", "pattern": "^[A-Z]+-[0-9]{3}$"},
      "name": {"type": "string", "minLength": 1},
      "title": {"type": "string", "minLength": 1},
      "department": {"type": "string", "enum": ["development", "design", "documentation", "management", "administration", "executive", "board"]},
      "seniority": {"type": "string", "enum": ["L5", "L6", "L7", "L8", "L9"]},
      "fte_percent": {"type": "integer", "minimum": 1, "maximum": 100},
      "skills": {
        "type": "object",
        "additionalProperties": {"type": "integer", "minimum": 0, "maximum": 100}
      },
      "personality": {"type": "string", "minLength": 1},
      "desk": {
        "type": "array",
        "items": {"type": "integer"},
        "minItems": 2,
        "maxItems": 2
      }
    }
  }
}`

const templatesSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["phase", "tasks"],
    "properties": {
      "phase": {"type": "integer", "minimum": 0, "maximum": 7},
      "tasks": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["title", "tag", "priority", "estimated_hours"],
          "properties": {
            "title": {"type": "string", "minLength": 1},
            "tag": {"type": "string", "minLength": 1},
            "priority": {"type": "string", "enum": ["urgent", "high", "medium", "low"]},
            "required_skills": {
              "type": "object",
              "additionalProperties": {"type": "integer", "minimum": 1, "maximum": 100}
            },
            "estimated_hours": {"type": "integer", "minimum": 1},
            "revenue": {"type": "boolean"},
            "revenue_minor": {"type": "integer", "minimum": 0},
            "recurring": {"type": "boolean"}
          }
        }
      }
    }
  }
}`
