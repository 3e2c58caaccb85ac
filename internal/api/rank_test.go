package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRank(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{in: "Gold II", want: "Gold II"},
		{in: "  gold   ii ", want: "Gold II"},
		{in: "IRON iv", want: "Iron IV"},
		{in: "Challenger", want: "Challenger"},
		{in: "Master I", want: "Master I"},
		{in: "Gold", wantErr: "needs a division"},
		{in: "Wood II", wantErr: "unknown tier"},
		{in: "Gold V", wantErr: "unknown division"},
		{in: "", wantErr: "invalid rank"},
		{in: "Gold II extra", wantErr: "invalid rank"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeRank(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
