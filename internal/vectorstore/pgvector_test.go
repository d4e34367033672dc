package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,-0.5,0]", vectorLiteral([]float32{1, -0.5, 0}))
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[0.25]", vectorLiteral([]float32{0.25}))
}
