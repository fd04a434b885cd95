package sitecsv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinpoint-converter/internal/probe"
)

func TestParseStandardHeader(t *testing.T) {
	rows, err := Parse(strings.NewReader(
		"electrode_id,x,y,z,channel,shank_id\n" +
			"0,0,0,15,3,0\n" +
			"1,0,25,15,1,0\n" +
			"2,250,0,15,2,1\n"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	r := rows[2]
	assert.Equal(t, 2, r.ElectrodeID)
	require.NotNil(t, r.X)
	assert.Equal(t, 250.0, *r.X)
	require.NotNil(t, r.Channel)
	assert.Equal(t, 2, *r.Channel)
	require.NotNil(t, r.ShankID)
	assert.Equal(t, 1, *r.ShankID)
}

func TestParseAliasedHeader(t *testing.T) {
	rows, err := Parse(strings.NewReader(
		"Contact, X_um, Y_um, Depth, CH, Shank\n" +
			"7, 1.5, 2.5, 15, 4, 1\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, 7, r.ElectrodeID)
	assert.Equal(t, 1.5, *r.X)
	assert.Equal(t, 2.5, *r.Y)
	assert.Equal(t, 15.0, *r.Z)
	assert.Equal(t, 4, *r.Channel)
	assert.Equal(t, 1, *r.ShankID)
}

func TestParseMissingColumns(t *testing.T) {
	rows, err := Parse(strings.NewReader("x,y\n10,20\n30,40\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// No id column: row index stands in.
	assert.Equal(t, 0, rows[0].ElectrodeID)
	assert.Equal(t, 1, rows[1].ElectrodeID)
	assert.Nil(t, rows[0].Z)
	assert.Nil(t, rows[0].Channel)
	assert.Nil(t, rows[0].ShankID)
}

func TestParseRejectsPositionlessHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("electrode_id,channel\n0,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position column")

	_, err = Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseSkipsUnparsableCells(t *testing.T) {
	rows, err := Parse(strings.NewReader("id,x,z\n0,n/a,15\n1,10,\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].X)
	assert.Equal(t, 15.0, *rows[0].Z)
	assert.Equal(t, 10.0, *rows[1].X)
	assert.Nil(t, rows[1].Z)
}

func TestMergeOverlaysByID(t *testing.T) {
	electrodes := []probe.Electrode{
		{ID: 0, X: 1, Y: 2},
		{ID: 1, X: 3, Y: 4},
		{ID: 2, X: 5, Y: 6},
	}
	z := 15.0
	ch := 9
	shank := 1
	rows := []Row{
		{ElectrodeID: 1, Z: &z, Channel: &ch, ShankID: &shank},
	}

	merged := Merge(electrodes, rows)

	// Unmatched electrodes pass through untouched.
	assert.Equal(t, electrodes[0], merged[0])
	assert.Equal(t, electrodes[2], merged[2])

	m := merged[1]
	assert.Equal(t, 3.0, m.X, "fields absent from the CSV keep parsed values")
	assert.Equal(t, 15.0, m.Z)
	assert.True(t, m.HasChannel)
	assert.Equal(t, 9, m.Channel)
	assert.True(t, m.HasShank)
	assert.Equal(t, 1, m.ShankID)

	// Input slice is never mutated.
	assert.Equal(t, 0.0, electrodes[1].Z)
	assert.False(t, electrodes[1].HasChannel)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n10,20\n"), 0o644))

	rows, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, *rows[0].X)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
