package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpvStorePutGetChainHead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.spv")

	s, err := OpenSpvStore(path, 64)
	require.NoError(t, err)
	defer s.Close()

	sb := testGenesisStored(t)
	require.NoError(t, s.Put(sb))
	require.NoError(t, s.SetChainHead(sb))

	got, err := s.Get(sb.Hash())
	require.NoError(t, err)
	require.Equal(t, sb.Height, got.Height)

	head, err := s.ChainHead()
	require.NoError(t, err)
	require.Equal(t, sb.Hash(), head.Hash())
}

func TestSpvStoreReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.spv")

	s, err := OpenSpvStore(path, 64)
	require.NoError(t, err)

	sb := testGenesisStored(t)
	require.NoError(t, s.Put(sb))
	require.NoError(t, s.SetChainHead(sb))
	require.NoError(t, s.Close())

	reopened, err := OpenSpvStore(path, 64)
	require.NoError(t, err)
	defer reopened.Close()

	head, err := reopened.ChainHead()
	require.NoError(t, err)
	require.Equal(t, sb.Hash(), head.Hash())
}

func TestSpvStoreRejectsCapacityMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.spv")

	s, err := OpenSpvStore(path, 64)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenSpvStore(path, 32)
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, ErrCorrupt, serr.Kind)
}

func TestSpvStoreOversizedChainWorkFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.spv")

	s, err := OpenSpvStore(path, 64)
	require.NoError(t, err)
	defer s.Close()

	sb := testGenesisStored(t)
	sb.ChainWork = sb.ChainWork.Lsh(sb.ChainWork, 200) // exceeds the 12-byte v2 field

	err = s.Put(sb)
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, ErrFull, serr.Kind)
}
