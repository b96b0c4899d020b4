package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := Constraint("NOT NULL constraint failed: %s", "t.x")
	require.True(t, errors.Is(err, ErrConstraint))
	require.False(t, errors.Is(err, ErrSchema))

	wrapped := fmt.Errorf("insert: %w", err)
	require.True(t, errors.Is(wrapped, ErrConstraint))
	require.Equal(t, KindConstraint, KindOf(wrapped))
	require.Equal(t, "insert: NOT NULL constraint failed: t.x", wrapped.Error())
}

func TestSyntaxCarriesPosition(t *testing.T) {
	err := Syntax(Pos{Line: 2, Column: 7, Offset: 12}, "near %q: syntax error", "FROM")
	require.Equal(t, `near "FROM": syntax error at line 2, column 7`, err.Error())
	require.Equal(t, 12, err.Pos.Offset)
	require.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("catalog: table already exists")
	err := Wrap(KindSchema, cause, "table %s already exists", "t1")
	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrSchema)
	require.Equal(t, "table t1 already exists", err.Error())
}
