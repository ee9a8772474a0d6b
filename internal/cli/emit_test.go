package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/lineage/internal/lineage"
)

func TestParseDatasetRefs(t *testing.T) {
	tests := []struct {
		name    string
		refs    []string
		want    []lineage.Dataset
		wantErr bool
	}{
		{
			name: "bare name inherits default namespace later",
			refs: []string{"raw_orders"},
			want: []lineage.Dataset{{Name: "raw_orders"}},
		},
		{
			name: "namespace and name",
			refs: []string{"warehouse/fct_orders"},
			want: []lineage.Dataset{{Namespace: "warehouse", Name: "fct_orders"}},
		},
		{
			name: "multiple references preserve order",
			refs: []string{"raw_orders", "warehouse/fct_orders"},
			want: []lineage.Dataset{
				{Name: "raw_orders"},
				{Namespace: "warehouse", Name: "fct_orders"},
			},
		},
		{
			name: "no references",
			refs: nil,
			want: nil,
		},
		{
			name:    "empty reference",
			refs:    []string{""},
			wantErr: true,
		},
		{
			name:    "empty namespace",
			refs:    []string{"/fct_orders"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDatasetRefs(tt.refs)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, lineage.ErrInvalidIdentity)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
