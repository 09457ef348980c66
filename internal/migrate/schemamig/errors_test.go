package schemamig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesMigrationIDWhenSet(t *testing.T) {
	err := newError(NotFound, "", "20260101_000000", "no migration file with this id")
	assert.Contains(t, err.Error(), "20260101_000000")
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestError_MessageIncludesRecordTypeWhenNoMigrationID(t *testing.T) {
	err := newError(Unregistered, "widget", "", "not registered")
	assert.Contains(t, err.Error(), "widget")
}

func TestError_MessageFallsBackToMsgAlone(t *testing.T) {
	err := newError(Corrupt, "", "", "bad json")
	assert.Equal(t, "schemamig[CORRUPT_FILE]: bad json", err.Error())
}
