package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 割当IPの検証はDBに触る前に落ちる
func TestUpdateAssignedIPs_validation(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		userID   int64
		assigned string
	}{
		{"invalid user", 0, "192.168.1.1"},
		{"not an ip", 42, "192.168.1.1,notanip"},
		{"duplicate", 42, "10.0.0.1;10.0.0.1"},
		{"zone suffix", 42, "fe80::1%eth0"},
		{"too many", 42, strings.Repeat("10.0.0.1,", MaxAssignedIPs) + "10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateAssignedIPs(ctx, tc.userID, tc.assigned)
			require.Error(t, err)
			var api *APIError
			require.ErrorAs(t, err, &api)
			assert.Equal(t, CodeInvalidArgument, api.Code)
		})
	}
}

func TestFullName(t *testing.T) {
	u := User{FirstName: "Ayşe", LastName: "Yılmaz"}
	assert.Equal(t, "Ayşe Yılmaz", u.FullName())
}
