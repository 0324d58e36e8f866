package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccount(t *testing.T) {
	assert.Equal(t, "****7890", Account("1234567890"))
	assert.Equal(t, "****", Account("123"))
	assert.Equal(t, "", Account(""))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "u***@***.com", Email("user@example.com"))
	assert.Equal(t, "a***@***.ba", Email("ahmed@posta.ba"))
	assert.Equal(t, "***", Email("not-an-email"))
	assert.Equal(t, "***", Email(""))
}
