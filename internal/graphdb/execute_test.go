package graphdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSingleNodeMatch(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (s:Scholar) WHERE lower(s.name) CONTAINS lower('CURIE') RETURN s.name")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Marie Curie", rows[0]["s.name"])
}

func TestExecuteStringEquality(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (i:Institution) WHERE i.country = 'USA' RETURN i.name")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExecuteNumericComparison(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (p:Prize) WHERE p.year > 1950 RETURN p.category, p.year")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	for _, r := range rows {
		assert.Greater(t, r["p.year"].(float64), float64(1950))
	}
}

func TestExecuteSingleHop(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (s:Scholar)-[:WON]->(p:Prize) WHERE p.category = 'Physics' RETURN s.name")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, r := range rows {
		names[r["s.name"].(string)] = true
	}
	assert.Equal(t, map[string]bool{
		"Marie Curie":     true,
		"Albert Einstein": true,
		"Richard Feynman": true,
	}, names)
}

func TestExecuteCount(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (s:Scholar)-[:WON]->(p:Prize) WHERE s.name = 'Linus Pauling' RETURN count(p)")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["count(p)"])
}

func TestExecuteLimit(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (p:Prize) RETURN p.year LIMIT 3")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExecuteLimitZeroReturnsNoRows(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (p:Prize) RETURN p.year LIMIT 0")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteConjunction(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(),
		"MATCH (p:Prize) WHERE p.category = 'Chemistry' AND p.year >= 1950 RETURN p.year")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1954), rows[0]["p.year"])
}

func TestExecuteTrailingSemicolon(t *testing.T) {
	s := seededStore(t)

	rows, err := s.Execute(context.Background(), "MATCH (s:Scholar) RETURN count(s);")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExecuteRejectsUnsupportedShape(t *testing.T) {
	s := seededStore(t)

	_, err := s.Execute(context.Background(),
		"MATCH (a:Scholar)-[:WON]->(p:Prize)<-[:WON]-(b:Scholar) RETURN a.name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by the embedded engine")

	_, err = s.Execute(context.Background(),
		"MATCH (s:Scholar) WHERE s.name STARTS WITH 'M' RETURN s.name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by the embedded engine")
}
