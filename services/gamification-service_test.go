package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"worksense/backend/models"
)

func TestPointsForSize(t *testing.T) {
	assert.Equal(t, int64(1), PointsForSize(models.SizeXS))
	assert.Equal(t, int64(2), PointsForSize(models.SizeS))
	assert.Equal(t, int64(3), PointsForSize(models.SizeM))
	assert.Equal(t, int64(5), PointsForSize(models.SizeL))
	assert.Equal(t, int64(8), PointsForSize(models.SizeXL))
	assert.Equal(t, int64(3), PointsForSize(""), "unknown sizes award the medium value")
}
