package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredential_Valid(t *testing.T) {
	assert.True(t, Credential{Token: "abc123", OwnerID: "u1"}.Valid())
	assert.False(t, Credential{Token: "", OwnerID: "u1"}.Valid())
	assert.False(t, Credential{Token: "abc123", OwnerID: ""}.Valid())
}

func TestCredential_TokenNeverSerialized(t *testing.T) {
	data, err := json.Marshal(Credential{Token: "abc123", OwnerID: "u1", OwnerName: "Alice"})
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "abc123")
}
