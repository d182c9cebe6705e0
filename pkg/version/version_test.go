package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_ContainsVersion(t *testing.T) {
	assert.Contains(t, String(), Version)
	assert.Contains(t, String(), "indexhub")
}

func TestShort_IsBareVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_MarshalsToJSON(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Version, decoded["version"])
	assert.NotEmpty(t, decoded["go_version"])
	assert.NotEmpty(t, decoded["os"])
}
