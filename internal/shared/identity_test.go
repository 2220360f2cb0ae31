package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalID_Validate(t *testing.T) {
	assert.NoError(t, ExternalID("d8Kq2Ls9XvT1").Validate())
	assert.Error(t, ExternalID("").Validate())
	assert.Error(t, ExternalID("   ").Validate())
	assert.Error(t, ExternalID("a/b").Validate())
	assert.Error(t, ExternalID(strings.Repeat("x", 129)).Validate())
}
