package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfAndExitCode(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
		code int
	}{
		{nil, KindNone, 0},
		{&UsageError{Msg: "missing contract path"}, KindUsage, 2},
		{&NotFoundError{Path: "x.sol", Err: os.ErrNotExist}, KindNotFound, 1},
		{&ParseError{Path: "x.sol", Err: errors.New("x.sol: boom")}, KindParse, 1},
		{&WriteError{Dir: "out", Err: os.ErrPermission}, KindWrite, 3},
		{fmt.Errorf("batch: %w", &WriteError{Dir: "out", Err: os.ErrPermission}), KindWrite, 3},
		{errors.New("other"), KindOther, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, KindOf(c.err), "%v", c.err)
		assert.Equal(t, c.code, ExitCode(c.err), "%v", c.err)
	}
}

func TestErrorMessagesAreKindTagged(t *testing.T) {
	assert.Equal(t, "usage: missing contract path", (&UsageError{Msg: "missing contract path"}).Error())
	assert.Equal(t, "parse error: x.sol:1:1: bad", (&ParseError{Err: errors.New("x.sol:1:1: bad")}).Error())
	assert.Contains(t, (&NotFoundError{Path: "a.sol", Err: os.ErrNotExist}).Error(), "not found: a.sol")
	assert.Contains(t, (&WriteError{Dir: "out", Err: os.ErrPermission}).Error(), "write failed: out")
	assert.ErrorIs(t, &WriteError{Err: os.ErrPermission}, os.ErrPermission)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := writeContract(t, dir, "A.sol", "contract A {}")

	src, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, SourceUnit{Path: p, Name: "A.sol", Text: "contract A {}"}, src)

	_, err = Load(filepath.Join(dir, "missing.sol"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = Load(dir)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = Load("")
	assert.Equal(t, KindUsage, KindOf(err))
}
