package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbench/pkg/models"
)

// S5: requested center=(10,2,1.5), size=(37.3,18.7), cell=(1.0,0.5).
func TestAlignSnapsAndRecenters(t *testing.T) {
	req := models.GridRequest{
		RequestedSizeX: 37.3, RequestedSizeY: 18.7,
		CellSizeX: 1.0, CellSizeY: 0.5,
		CenterX: 10, CenterY: 2, CenterZ: 1.5,
	}

	out, err := Align(req)
	require.NoError(t, err)
	assert.InDelta(t, 38.0, out.SizeX, 1e-9)
	assert.InDelta(t, 19.0, out.SizeY, 1e-9)
	assert.InDelta(t, -8.5, out.XS[0], 1e-9)
	assert.InDelta(t, -7.25, out.YS[0], 1e-9)
	assert.InDelta(t, 1.5, out.CenterZ, 1e-9)
}

func TestAlignIdempotent(t *testing.T) {
	req := models.GridRequest{
		RequestedSizeX: 37.3, RequestedSizeY: 18.7,
		CellSizeX: 1.0, CellSizeY: 0.5,
		CenterX: 10, CenterY: 2, CenterZ: 1.5,
	}
	first, err := Align(req)
	require.NoError(t, err)

	second, err := Align(models.GridRequest{
		RequestedSizeX: first.SizeX, RequestedSizeY: first.SizeY,
		CellSizeX: first.CellSizeX, CellSizeY: first.CellSizeY,
		CenterX: first.CenterX, CenterY: first.CenterY, CenterZ: first.CenterZ,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAlignRejectsNonPositiveCellSize(t *testing.T) {
	_, err := Align(models.GridRequest{CellSizeX: 0, CellSizeY: 1, RequestedSizeX: 1, RequestedSizeY: 1})
	assert.Error(t, err)
}

func TestAlignMinimumTwoCells(t *testing.T) {
	out, err := Align(models.GridRequest{
		RequestedSizeX: 0.1, RequestedSizeY: 0.1,
		CellSizeX: 1, CellSizeY: 1,
		CenterX: 0, CenterY: 0,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.SizeX, 1e-9)
	assert.InDelta(t, 2.0, out.SizeY, 1e-9)
}

func TestAlignAutoSizeWithRisOptIn(t *testing.T) {
	out, err := Align(models.GridRequest{
		CellSizeX: 1, CellSizeY: 1,
		CenterX: 0, CenterY: 0,
		AutoSize: &models.AutoSize{
			Enabled:  true,
			PaddingM: 1,
			Devices:  []models.Vec3{{X: -2}, {X: 2}},
			IncludeRis: true,
			RisCorners: []models.Vec3{{Y: -5}, {Y: 5}},
		},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.SizeY, 10.0)
}
