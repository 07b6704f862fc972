package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmailType(t *testing.T) {
	assert.Equal(t, TypeDocumentInvite, NormalizeEmailType("invite"))
	assert.Equal(t, TypeSigningReminder, NormalizeEmailType("reminder"))
	assert.Equal(t, TypeSignatureComplete, NormalizeEmailType("signed"))
	assert.Equal(t, TypeSignatureComplete, NormalizeEmailType("completed"))

	// Canonical names pass through
	assert.Equal(t, TypeDocumentInvite, NormalizeEmailType(TypeDocumentInvite))
	assert.Equal(t, TypeSigningReminder, NormalizeEmailType(TypeSigningReminder))

	// Unknown values are untouched
	assert.Equal(t, "newsletter", NormalizeEmailType("newsletter"))
}

func TestMetadataMergeIsAdditive(t *testing.T) {
	base := Metadata{"a": 1, "b": "old"}
	merged := base.Merge(Metadata{"b": "new", "c": 3})

	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, "new", merged["b"])
	assert.Equal(t, 3, merged["c"])

	// The receiver is not mutated
	assert.Equal(t, "old", base["b"])
	assert.NotContains(t, base, "c")
}

func TestMetadataValueScanRoundtrip(t *testing.T) {
	original := Metadata{
		"messageId": "m1",
		"subject":   "Please sign",
		"openedAt":  float64(1700000000000),
	}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned Metadata
	require.NoError(t, scanned.Scan(value))

	assert.Equal(t, "m1", scanned["messageId"])
	assert.Equal(t, "Please sign", scanned["subject"])
	assert.EqualValues(t, 1700000000000, scanned["openedAt"])
}

func TestMetadataScanNil(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestMetadataValueNil(t *testing.T) {
	var m Metadata
	value, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", value)
}
