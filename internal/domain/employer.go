package domain

import (
	"bytes"
	"encoding/json"
)

// Employer is one record of the /api/employers payload. Only Name is
// rendered; the rest is decoded when the API sends it.
type Employer struct {
	ID                 int64   `json:"id,omitempty"`
	Name               string  `json:"name"`
	JobDescription     string  `json:"job_description,omitempty"`
	Location           string  `json:"location,omitempty"`
	MinSalary          float64 `json:"min_salary,omitempty"`
	MaxSalary          float64 `json:"max_salary,omitempty"`
	EducationLevel     int     `json:"education_level,omitempty"`
	ExperienceRequired int     `json:"experience_required,omitempty"`
}

// UnmarshalJSON accepts any record shape. The payload has no schema, so a
// field of an unexpected type is left at its zero value instead of failing
// the whole list. A non-string name keeps its JSON text; a missing or null
// name, or a record that is not an object, leaves Name empty.
func (e *Employer) UnmarshalJSON(b []byte) error {
	*e = Employer{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}

	e.Name = nameText(fields["name"])
	lenient(fields["id"], &e.ID)
	lenient(fields["job_description"], &e.JobDescription)
	lenient(fields["location"], &e.Location)
	lenient(fields["min_salary"], &e.MinSalary)
	lenient(fields["max_salary"], &e.MaxSalary)
	lenient(fields["education_level"], &e.EducationLevel)
	lenient(fields["experience_required"], &e.ExperienceRequired)
	return nil
}

func nameText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// lenient decodes raw into dst and leaves dst untouched on a type mismatch.
func lenient[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

// EmployerCollection keeps the API order. Duplicates are allowed.
type EmployerCollection []Employer

func (c EmployerCollection) Names() []string {
	out := make([]string, 0, len(c))
	for _, e := range c {
		out = append(out, e.Name)
	}
	return out
}
