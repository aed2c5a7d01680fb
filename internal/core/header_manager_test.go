package core

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderManager_MergePriority(t *testing.T) {
	hm, err := NewHeaderManager(
		map[string]string{"user-agent": "ConfigBot/1.0", "x-from-config": "1"},
		[]string{"User-Agent: CliBot/2.0", "Authorization: Bearer secret-token"},
	)
	require.NoError(t, err)

	h, err := hm.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, "CliBot/2.0", h.Get("User-Agent"))
	assert.Equal(t, "1", h.Get("X-From-Config"))
	assert.Equal(t, "gzip, deflate, br", h.Get("Accept-Encoding"))
	assert.Equal(t, "Bearer secret-token", h.Get("Authorization"))

	// 返回副本,调用方修改不影响后续请求
	h.Set("User-Agent", "changed")
	again, err := hm.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, "CliBot/2.0", again.Get("User-Agent"))

	assert.Contains(t, hm.GetSafeHeaders(), "Authorization: Bearer ***")
	assert.NotContains(t, hm.GetSafeHeaders(), "secret-token")
}

func TestHeaderManager_InvalidCLI(t *testing.T) {
	_, err := NewHeaderManager(nil, []string{"no-colon"})
	assert.Error(t, err)
}

func TestHeaderManager_ForbiddenHeader(t *testing.T) {
	hm, err := NewHeaderManager(map[string]string{"host": "example.com"}, nil)
	require.NoError(t, err)

	_, err = hm.GetHeaders()
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))

	// 错误会被缓存
	_, err = hm.GetHeaders()
	assert.Error(t, err)
}
