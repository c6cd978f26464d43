package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberPatch_ApplyKeepsAbsentFields(t *testing.T) {
	m := Member{ID: "u1", Name: "Alice", Color: "teal", Icon: "cat"}
	lat, lng := 37.7, -122.4

	MemberPatch{ID: "u1", Latitude: &lat, Longitude: &lng}.Apply(&m)

	assert.Equal(t, "Alice", m.Name)
	assert.Equal(t, "teal", m.Color)
	assert.Equal(t, "cat", m.Icon)
	assert.Equal(t, 37.7, m.Latitude)
	assert.Equal(t, -122.4, m.Longitude)
}

func TestMemberPatch_ApplyOverridesPresentFields(t *testing.T) {
	m := Member{ID: "u1", Name: "Alice", Color: "teal"}
	name, icon := "Alicia", ""

	MemberPatch{ID: "u1", Name: &name, Icon: &icon}.Apply(&m)

	assert.Equal(t, "Alicia", m.Name)
	assert.Equal(t, "teal", m.Color)
	assert.Empty(t, m.Icon)
}
