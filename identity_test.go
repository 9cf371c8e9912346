package filevault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/filevault"
)

func TestOwnerFromContext(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		want    string
		wantErr bool
	}{
		{name: "present", ctx: filevault.WithOwner(context.Background(), "alice"), want: "alice"},
		{name: "absent", ctx: context.Background(), wantErr: true},
		{name: "empty", ctx: filevault.WithOwner(context.Background(), ""), wantErr: true},
		{name: "slash", ctx: filevault.WithOwner(context.Background(), "alice/bob"), wantErr: true},
		{name: "dot dot", ctx: filevault.WithOwner(context.Background(), ".."), wantErr: true},
		{name: "wrong type", ctx: context.WithValue(context.Background(), struct{}{}, "alice"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filevault.OwnerFromContext(tt.ctx)
			if tt.wantErr {
				assert.ErrorIs(t, err, filevault.ErrAuthentication)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
