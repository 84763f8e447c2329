package dependent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTables_CoversEveryDependentTable(t *testing.T) {
	r := &Repository{}
	assert.Equal(t, []string{"invoices", "messages", "galleries", "files"}, r.Tables())
}

func TestTables_ReturnsCopy(t *testing.T) {
	r := &Repository{}
	got := r.Tables()
	got[0] = "mutated"
	assert.Equal(t, "invoices", r.Tables()[0])
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		table string
		want  bool
	}{
		{"invoices", true},
		{"messages", true},
		{"galleries", true},
		{"files", true},
		{"clients", false},
		{"invoices; DROP TABLE clients", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, allowed(tt.table), tt.table)
	}
}
