package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployer_UnmarshalLenient(t *testing.T) {
	cases := []struct {
		in   string
		want Employer
	}{
		{`{"id":3,"name":"Acme","max_salary":90000}`, Employer{ID: 3, Name: "Acme", MaxSalary: 90000}},
		{`{"id":"A-1","name":"Acme"}`, Employer{Name: "Acme"}},
		{`{"name":true}`, Employer{Name: "true"}},
		{`{"name":{"en": "Acme"}}`, Employer{Name: `{"en":"Acme"}`}},
		{`{"name":null,"location":"Porto"}`, Employer{Location: "Porto"}},
		{`"Acme"`, Employer{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			var e Employer
			require.NoError(t, json.Unmarshal([]byte(tc.in), &e))
			assert.Equal(t, tc.want, e)
		})
	}
}

func TestCollection_KeepsOrderAndDuplicates(t *testing.T) {
	var c EmployerCollection
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"B"},{"name":"A"},{"name":"B"}]`), &c))
	assert.Equal(t, []string{"B", "A", "B"}, c.Names())
}
