package permissions_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalet/permissions"
)

func TestGet(t *testing.T) {
	data := permissions.Get()
	require.NotNil(t, data)

	assert.True(t, data.FindPermissions("/v1/properties/{id}/availability", http.MethodGet).Skip)
	assert.Equal(t, []string{"admin", "superadmin"}, data.FindPermissions("/v1/payments/{id}/approve", http.MethodPost).Permissions)
	assert.Equal(t, []string{"admin", "superadmin"}, data.FindPermissions("/v1/bookings/", http.MethodGet).Permissions)
	assert.Empty(t, data.FindPermissions("/v1/unknown", http.MethodGet).Permissions)
}
