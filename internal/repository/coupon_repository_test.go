package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, `Acme`, escapeLikePattern(`Acme`))
	assert.Equal(t, `100\% Off`, escapeLikePattern(`100% Off`))
	assert.Equal(t, `big\_box`, escapeLikePattern(`big_box`))
	assert.Equal(t, `a\\b`, escapeLikePattern(`a\b`))
	assert.Equal(t, `\%\_\\`, escapeLikePattern(`%_\`))
}
