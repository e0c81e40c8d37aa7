package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

const labelList = `{"type": "array", "maxItems": 50, "items": {"type": "string", "maxLength": 120}}`

var onboardingSchema = mustSchema(`{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "experience": {"type": "string", "enum": ["", "0-1", "1-2", "2-4", "5-7", "8-10", "11-15", "16+"]},
    "job_title": {"type": "string", "maxLength": 200},
    "skills": ` + labelList + `,
    "roles": ` + labelList + `,
    "departments": ` + labelList + `,
    "industries": ` + labelList + `,
    "certs": ` + labelList + `,
    "min_salary_id": {"type": "string"},
    "max_salary_id": {"type": "string"},
    "identity": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["labels"],
        "properties": {
          "labels": ` + labelList + `,
          "display": {"type": "boolean"}
        }
      }
    },
    "disabled": {"type": "boolean"},
    "caregiver": {"type": "boolean"},
    "veteran": {"type": "boolean"},
    "company": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "name": {"type": "string", "maxLength": 200},
        "url": {"type": "string", "maxLength": 500}
      }
    },
    "mentorship": {
      "type": "object",
      "properties": {
        "mentor": {"type": "boolean"},
        "mentee": {"type": "boolean"},
        "commitment": {"type": "string", "enum": ["", "low", "medium", "high"]},
        "capacity": {"type": "integer", "minimum": 0, "maximum": 20},
        "bio": {"type": "string", "maxLength": 4000},
        "goals": {"type": "string", "maxLength": 4000}
      }
    },
    "marketing": {
      "type": "object",
      "properties": {
        "jobs": {"type": "boolean"},
        "events": {"type": "boolean"},
        "org_updates": {"type": "boolean"},
        "identity_programs": {"type": "boolean"},
        "newsletter": {"type": "boolean"}
      }
    }
  }
}`)

var createJobSchema = mustSchema(`{
  "type": "object",
  "required": ["company_id", "title"],
  "additionalProperties": false,
  "properties": {
    "company_id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "description": {"type": "string", "maxLength": 20000},
    "apply_url": {"type": "string", "maxLength": 500},
    "location": {"type": "string", "maxLength": 200},
    "remote": {"type": "boolean"},
    "skills": ` + labelList + `,
    "departments": ` + labelList + `,
    "salary_id": {"type": "string"}
  }
}`)

func mustSchema(raw string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return rs
}

// validateAndDecode は body をスキーマで検証してから v にデコードします。
func validateAndDecode(ctx context.Context, schema *jsonschema.Schema, body []byte, v any) error {
	if !json.Valid(body) {
		return errBadJSON
	}
	verrs, err := schema.ValidateBytes(ctx, body)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, e.PropertyPath+": "+e.Message)
		}
		return &validationError{fields: fields}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}
