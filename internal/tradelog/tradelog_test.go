package tradelog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/tradelog"
)

func TestCSVAppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	l, err := tradelog.OpenCSV(path)
	require.NoError(t, err)

	require.NoError(t, l.Append(1700000000123, 1, 2, 15000, 50, "AAPL"))
	require.NoError(t, l.Append(1700000000456, 3, 4, 10100, 150, "MSFT"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"1700000000123,1,2,15000,50,AAPL\n1700000000456,3,4,10100,150,MSFT\n",
		string(data))
}

func TestCSVAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	l, err := tradelog.OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(1, 1, 2, 100, 5, "AAPL"))
	require.NoError(t, l.Close())

	l, err = tradelog.OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(2, 3, 4, 200, 6, "AAPL"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,1,2,100,5,AAPL\n2,3,4,200,6,AAPL\n", string(data))
}

func TestPebbleScanInAppendOrder(t *testing.T) {
	dir := t.TempDir()
	p, err := tradelog.OpenPebble(dir)
	require.NoError(t, err)

	require.NoError(t, p.Append(10, 1, 2, 15000, 50, "AAPL"))
	require.NoError(t, p.Append(11, 3, 4, 10100, 150, "MSFT"))

	var entries []tradelog.Entry
	require.NoError(t, p.Scan(func(e tradelog.Entry) error {
		entries = append(entries, e)
		return nil
	}))
	require.NoError(t, p.Close())

	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, int64(10), entries[0].Timestamp)
	assert.Equal(t, uint64(1), entries[0].BuyOrderID)
	assert.Equal(t, uint64(2), entries[0].SellOrderID)
	assert.Equal(t, int64(15000), entries[0].Price)
	assert.Equal(t, int64(50), entries[0].Quantity)
	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Equal(t, uint64(2), entries[1].Seq)
	assert.Equal(t, "MSFT", entries[1].Symbol)
}

func TestPebbleRecoversSequenceOnReopen(t *testing.T) {
	dir := t.TempDir()

	p, err := tradelog.OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, p.Append(10, 1, 2, 100, 1, "AAPL"))
	require.NoError(t, p.Append(11, 3, 4, 100, 1, "AAPL"))
	require.NoError(t, p.Close())

	p, err = tradelog.OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, p.Append(12, 5, 6, 100, 1, "AAPL"))

	var seqs []uint64
	require.NoError(t, p.Scan(func(e tradelog.Entry) error {
		seqs = append(seqs, e.Seq)
		return nil
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, []uint64{1, 2, 3}, seqs, "sequence continues after reopen")
}
