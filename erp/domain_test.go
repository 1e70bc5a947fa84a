package erp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = map[string]bool{
	"name":          true,
	"state":         true,
	"active":        true,
	"department_id": true,
	"wage":          true,
}

func TestCompileDomainEmpty(t *testing.T) {
	cond, err := compileDomain(nil, testColumns)
	require.NoError(t, err)
	assert.Empty(t, cond.sql)
	assert.Empty(t, cond.args)
}

func TestCompileDomainImplicitAnd(t *testing.T) {
	cond, err := compileDomain(Domain{
		F("state", "=", "open"),
		F("wage", ">", 1000.0),
	}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "(state = ?) AND (wage > ?)", cond.sql)
	assert.Equal(t, []any{"open", 1000.0}, cond.args)
}

func TestCompileDomainPrefixOr(t *testing.T) {
	cond, err := compileDomain(Domain{
		Or(), F("state", "=", "draft"), F("state", "=", "confirm"),
	}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "(state = ?) OR (state = ?)", cond.sql)
	assert.Equal(t, []any{"draft", "confirm"}, cond.args)
}

func TestCompileDomainNestedLogic(t *testing.T) {
	// & (| a b) c : OR binds the first two triples, the third ANDs on top.
	cond, err := compileDomain(Domain{
		And(), Or(), F("state", "=", "draft"), F("state", "=", "open"), F("active", "=", true),
	}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "((state = ?) OR (state = ?)) AND (active = ?)", cond.sql)
	assert.Equal(t, []any{"draft", "open", true}, cond.args)
}

func TestCompileDomainNot(t *testing.T) {
	cond, err := compileDomain(Domain{
		Not(), F("state", "=", "cancel"),
	}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "NOT (state = ?)", cond.sql)
	assert.Equal(t, []any{"cancel"}, cond.args)
}

func TestCompileDomainIn(t *testing.T) {
	cond, err := compileDomain(Domain{
		F("state", "in", []string{"draft", "confirm"}),
	}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "state IN (?)", cond.sql)
	require.Len(t, cond.args, 1)
	assert.Equal(t, []string{"draft", "confirm"}, cond.args[0])
}

func TestCompileDomainIlikeWrapsPattern(t *testing.T) {
	cond, err := compileDomain(Domain{F("name", "ilike", "alice")}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "LOWER(name) LIKE LOWER(?)", cond.sql)
	assert.Equal(t, []any{"%alice%"}, cond.args)

	cond, err = compileDomain(Domain{F("name", "ilike", "al%ce")}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, []any{"al%ce"}, cond.args)
}

func TestCompileDomainNullComparisons(t *testing.T) {
	cond, err := compileDomain(Domain{F("department_id", "=", nil)}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "department_id IS NULL", cond.sql)

	cond, err = compileDomain(Domain{F("department_id", "!=", nil)}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "department_id IS NOT NULL", cond.sql)

	_, err = compileDomain(Domain{F("wage", ">", nil)}, testColumns)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompileDomainRejectsUnknowns(t *testing.T) {
	_, err := compileDomain(Domain{F("password", "=", "x")}, testColumns)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = compileDomain(Domain{F("name", "~", "x")}, testColumns)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = compileDomain(Domain{Or(), F("name", "=", "x")}, testColumns)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompileDomainNotEqualsMapsToDiamond(t *testing.T) {
	cond, err := compileDomain(Domain{F("state", "!=", "cancel")}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, "state <> ?", cond.sql)
}
